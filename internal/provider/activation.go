package provider

import (
	"context"
	"time"
)

// Activator is the host collaborator able to load an extension.
type Activator interface {
	IsActive(id string) bool
	Activate(ctx context.Context, id string) error
}

// WaitForActivation activates id if it is not active yet and waits at most
// timeout for it. It returns true on success and false on timeout or
// activation failure; it never returns an error.
//
// The activation call races the timer. Whichever settles first decides the
// result; a late activation outcome is dropped.
func WaitForActivation(ctx context.Context, a Activator, id string, timeout time.Duration) bool {
	if a == nil {
		return false
	}
	if a.IsActive(id) {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the activation goroutine can always deliver and exit.
	result := make(chan error, 1)
	go func() {
		result <- a.Activate(ctx, id)
	}()

	select {
	case err := <-result:
		// An outcome delivered after the deadline lost the race.
		return err == nil && ctx.Err() == nil
	case <-ctx.Done():
		return false
	}
}
