// Package lifecycle drives protocol.Component values through init, start,
// stop and close. Nil components are skipped.
package lifecycle

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/dukex/operion-triggered/pkg/protocol"
)

func isNil(c protocol.Component) bool {
	if c == nil {
		return true
	}

	v := reflect.ValueOf(c)

	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Init initialises components in order and stops at the first error.
func Init(ctx context.Context, components ...protocol.Component) error {
	for _, c := range components {
		if isNil(c) {
			continue
		}

		if err := c.Init(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Start starts components in order and stops at the first error.
func Start(ctx context.Context, components ...protocol.Component) error {
	for _, c := range components {
		if isNil(c) {
			continue
		}

		if err := c.Start(ctx); err != nil {
			return err
		}
	}

	return nil
}

// InitAndStart initialises then starts each component in turn.
func InitAndStart(ctx context.Context, components ...protocol.Component) error {
	for _, c := range components {
		if err := Init(ctx, c); err != nil {
			return err
		}

		if err := Start(ctx, c); err != nil {
			return err
		}
	}

	return nil
}

// Stop stops every component. Failures are logged, never returned.
func Stop(ctx context.Context, logger *slog.Logger, components ...protocol.Component) {
	for _, c := range components {
		if isNil(c) {
			continue
		}

		if err := c.Stop(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to stop component", "component", describe(c), "error", err)
		}
	}
}

// Close closes every component. Failures are logged, never returned.
func Close(ctx context.Context, logger *slog.Logger, components ...protocol.Component) {
	for _, c := range components {
		if isNil(c) {
			continue
		}

		if err := c.Close(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to close component", "component", describe(c), "error", err)
		}
	}
}

// StopAndClose stops then closes each component in turn.
func StopAndClose(ctx context.Context, logger *slog.Logger, components ...protocol.Component) {
	for _, c := range components {
		Stop(ctx, logger, c)
		Close(ctx, logger, c)
	}
}

func describe(c protocol.Component) string {
	if named, ok := c.(interface{ FriendlyName() string }); ok {
		return named.FriendlyName()
	}

	return reflect.TypeOf(c).String()
}
