package module

import (
	"errors"

	"github.com/bankstage/core/module/irrecoverable"
)

// ErrMultipleStartup is returned when a component's Start is called more than once.
var ErrMultipleStartup = errors.New("component may only be started once")

// Startable provides an interface to start a component. Any irrecoverable
// error encountered after startup is reported through the SignalerContext
// rather than returned from Start, since Start itself typically launches
// goroutines and returns immediately.
type Startable interface {
	Start(irrecoverable.SignalerContext)
}

// ReadyDoneAware provides easy interface to wait for module startup and shutdown.
// Modules that implement this interface only support a single start-stop cycle,
// and will not restart if Ready() is called again after shutdown has already commenced.
type ReadyDoneAware interface {
	// Ready commences startup of the module, and returns a ready channel that is closed once
	// startup has completed. This is an idempotent method.
	Ready() <-chan struct{}

	// Done commences shutdown of the module, and returns a done channel that is closed once
	// shutdown has completed. This is an idempotent method.
	Done() <-chan struct{}
}
