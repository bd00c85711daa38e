package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsZeroWorkers(t *testing.T) {
	c := Default()
	c.NumWorkers = 0
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsUnknownScheduler(t *testing.T) {
	c := Default()
	c.SchedulerKind = "bogus"
	assert.Error(t, c.Validate())
}

func TestFromViper_OverridesDefaults(t *testing.T) {
	def := Default()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &def)

	require.NoError(t, flags.Set(flagNumWorkers, "8"))
	require.NoError(t, flags.Set(flagSchedulerKind, "greedy"))

	v := viper.New()
	require.NoError(t, v.BindPFlags(flags))

	c, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 8, c.NumWorkers)
	assert.Equal(t, SchedulerGreedy, c.SchedulerKind)
}
