package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/bft-labs/scanwave/internal/ports"
)

// withSession opens a device, runs fn and releases the device on every exit
// path. Stop and Close errors are combined with the error returned by fn.
func withSession[T ports.Device](ctx context.Context, open func(context.Context) (T, error), fn func(T) error) (err error) {
	dev, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer func() {
		err = multierr.Append(err, release(dev))
	}()

	return fn(dev)
}

// release stops and closes dev. Stopping a task that never started is not an error.
func release(dev ports.Device) error {
	stopErr := dev.Stop()
	if errors.Is(stopErr, ports.ErrTaskNotArmed) {
		stopErr = nil
	}
	if stopErr != nil {
		stopErr = fmt.Errorf("stop device: %w", stopErr)
	}

	closeErr := dev.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close device: %w", closeErr)
	}
	return multierr.Combine(stopErr, closeErr)
}
