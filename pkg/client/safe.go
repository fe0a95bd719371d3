package client

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// PanicError is the fault reported for an action or listener that panicked.
// It reaches listeners through gateway.ActionError and gateway.ListenerError.
type PanicError struct {
	// Scope names the guarded call, for example "action GUILD_CREATE".
	Scope string
	// Value is the recovered panic value.
	Value any
	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic recovered: %v", e.Scope, e.Value)
}

// runGuarded executes fn, wrapping its error with scope. A panic is logged
// with its stack and returned as a *PanicError.
func runGuarded(ctx context.Context, logger *slog.Logger, scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		panicErr := &PanicError{
			Scope: scope,
			Value: recovered,
			Stack: debug.Stack(),
		}
		if logger != nil {
			logger.ErrorContext(ctx, "gateway recovered panic",
				"scope", scope,
				"panic", fmt.Sprint(recovered),
				"stack", string(panicErr.Stack),
			)
		}
		err = panicErr
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}
