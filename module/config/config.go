// Package config defines the banking stage's configuration surface and how
// it is bound to CLI flags and loaded from a viper store.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SchedulerKind selects which non-vote scheduling policy the Scheduler runs.
type SchedulerKind string

const (
	SchedulerPriorityGraph SchedulerKind = "priority_graph"
	SchedulerGreedy        SchedulerKind = "greedy"
)

const (
	flagNumWorkers           = "banking-num-workers"
	flagSchedulerKind        = "banking-scheduler-kind"
	flagMaxBlockCU           = "banking-max-block-cu"
	flagMaxVoteCU            = "banking-max-vote-cu"
	flagMaxAccountCU         = "banking-max-account-cu"
	flagMaxAccountDataBlock  = "banking-max-account-data-block"
	flagMaxAccountDataTotal  = "banking-max-account-data-total"
	flagBufferCapacity       = "banking-buffer-capacity"
	flagStatusSenderEnabled  = "banking-status-sender-enabled"
)

// Config is the full, enumerated configuration surface of the banking
// stage. These are the only recognized options; nothing else may be
// configured.
type Config struct {
	NumWorkers          int
	SchedulerKind       SchedulerKind
	MaxBlockCU          uint64
	MaxVoteCU           uint64
	MaxAccountCU        uint64
	MaxAccountDataBlock uint64
	MaxAccountDataTotal uint64
	BufferCapacity      int
	StatusSenderEnabled bool
}

// Default returns the configuration defaults named in the options table.
func Default() Config {
	return Config{
		NumWorkers:          4,
		SchedulerKind:       SchedulerPriorityGraph,
		MaxBlockCU:          48_000_000,
		MaxVoteCU:           36_000_000,
		MaxAccountCU:        12_000_000,
		MaxAccountDataBlock: 100_000_000,
		MaxAccountDataTotal: 1_000_000_000,
		BufferCapacity:      500_000,
		StatusSenderEnabled: false,
	}
}

// Validate rejects configurations that can never produce a workable stage:
// zero workers, an unrecognized scheduler kind, a zero block, vote or
// per-account compute ceiling, or a non-positive buffer capacity. The two
// account-data ceilings are not checked.
func (c Config) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("num_workers must be positive, got %d", c.NumWorkers)
	}
	switch c.SchedulerKind {
	case SchedulerPriorityGraph, SchedulerGreedy:
	default:
		return fmt.Errorf("unrecognized scheduler_kind %q", c.SchedulerKind)
	}
	if c.MaxBlockCU == 0 {
		return fmt.Errorf("max_block_cu must be positive")
	}
	if c.MaxVoteCU == 0 {
		return fmt.Errorf("max_vote_cu must be positive")
	}
	if c.MaxAccountCU == 0 {
		return fmt.Errorf("max_account_cu must be positive")
	}
	if c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", c.BufferCapacity)
	}
	return nil
}

// BindFlags registers a pflag for every option, defaulted from config.
func BindFlags(flags *pflag.FlagSet, config *Config) {
	flags.Int(flagNumWorkers, config.NumWorkers, "number of non-vote consume workers")
	flags.String(flagSchedulerKind, string(config.SchedulerKind), "non-vote scheduler policy: priority_graph or greedy")
	flags.Uint64(flagMaxBlockCU, config.MaxBlockCU, "block compute unit ceiling")
	flags.Uint64(flagMaxVoteCU, config.MaxVoteCU, "vote-lane compute unit ceiling")
	flags.Uint64(flagMaxAccountCU, config.MaxAccountCU, "per-account compute unit ceiling")
	flags.Uint64(flagMaxAccountDataBlock, config.MaxAccountDataBlock, "block-scope loaded account data ceiling")
	flags.Uint64(flagMaxAccountDataTotal, config.MaxAccountDataTotal, "global loaded account data ceiling")
	flags.Int(flagBufferCapacity, config.BufferCapacity, "non-vote buffer capacity")
	flags.Bool(flagStatusSenderEnabled, config.StatusSenderEnabled, "emit transaction status batches")
}

// FromViper loads a Config from v, falling back to Default for any key v
// does not have bound (e.g. because BindFlags was never called against it).
func FromViper(v *viper.Viper) (Config, error) {
	c := Default()

	if v.IsSet(flagNumWorkers) {
		c.NumWorkers = v.GetInt(flagNumWorkers)
	}
	if v.IsSet(flagSchedulerKind) {
		c.SchedulerKind = SchedulerKind(v.GetString(flagSchedulerKind))
	}
	if v.IsSet(flagMaxBlockCU) {
		c.MaxBlockCU = v.GetUint64(flagMaxBlockCU)
	}
	if v.IsSet(flagMaxVoteCU) {
		c.MaxVoteCU = v.GetUint64(flagMaxVoteCU)
	}
	if v.IsSet(flagMaxAccountCU) {
		c.MaxAccountCU = v.GetUint64(flagMaxAccountCU)
	}
	if v.IsSet(flagMaxAccountDataBlock) {
		c.MaxAccountDataBlock = v.GetUint64(flagMaxAccountDataBlock)
	}
	if v.IsSet(flagMaxAccountDataTotal) {
		c.MaxAccountDataTotal = v.GetUint64(flagMaxAccountDataTotal)
	}
	if v.IsSet(flagBufferCapacity) {
		c.BufferCapacity = v.GetInt(flagBufferCapacity)
	}
	if v.IsSet(flagStatusSenderEnabled) {
		c.StatusSenderEnabled = v.GetBool(flagStatusSenderEnabled)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid banking stage configuration: %w", err)
	}
	return c, nil
}
