package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"ex-otogi-gateway/pkg/gateway"
)

func TestRunGuarded(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("listener failed")
	tests := []struct {
		name      string
		fn        func() error
		wantPanic bool
		wantIs    error
	}{
		{name: "success", fn: func() error { return nil }},
		{name: "returned error", fn: func() error { return sentinel }, wantIs: sentinel},
		{name: "panic", fn: func() error { panic("boom") }, wantPanic: true},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logs, nil))
			err := runGuarded(context.Background(), logger, "action TEST", testCase.fn)

			var panicErr *PanicError
			switch {
			case testCase.wantPanic:
				if !errors.As(err, &panicErr) {
					t.Fatalf("error = %v, want *PanicError", err)
				}
				if panicErr.Value != "boom" || panicErr.Scope != "action TEST" || len(panicErr.Stack) == 0 {
					t.Fatalf("panic error = %+v", panicErr)
				}
				if !strings.Contains(logs.String(), `"stack"`) {
					t.Fatalf("panic log missing stack: %s", logs.String())
				}
			case testCase.wantIs != nil:
				if !errors.Is(err, testCase.wantIs) || !strings.HasPrefix(err.Error(), "action TEST: ") {
					t.Fatalf("error = %v, want scoped %v", err, testCase.wantIs)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if !testCase.wantPanic && logs.Len() != 0 {
				t.Fatalf("unexpected log output: %s", logs.String())
			}
		})
	}
}

func TestActionPanicReachesListeners(t *testing.T) {
	t.Parallel()

	c, recorder := newTestClient(t, WithPieces(Piece{
		Name: "Exploding",
		Action: ActionFunc(func(context.Context, *Client, gateway.Frame) error {
			panic("exploded")
		}),
	}))
	mustDispatch(t, c, frame("EXPLODING", `{}`))

	var panicErr *PanicError
	if !errors.As(mustArg[error](t, recorder.last(gateway.EventError), 0), &panicErr) {
		t.Fatal("error event does not carry a *PanicError")
	}
	if panicErr.Scope != "action EXPLODING" || len(panicErr.Stack) == 0 {
		t.Fatalf("panic error = %+v", panicErr)
	}
}
