package run

import (
	"errors"
	"testing"
	"time"
)

func TestGuard_SettlesBeforeDeadline(t *testing.T) {
	value, err := Guard(time.Second, func() (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "done" {
		t.Errorf("value = %q, want done", value)
	}
}

func TestGuard_PropagatesOperationError(t *testing.T) {
	opErr := errors.New("upstream refused")
	_, err := Guard(time.Second, func() (int, error) {
		return 0, opErr
	})
	if !errors.Is(err, opErr) {
		t.Errorf("err = %v, want the operation error", err)
	}
}

func TestGuard_TimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	_, err := Guard(10*time.Millisecond, func() (int, error) {
		<-release
		return 42, nil
	})

	var timedOut *TimeoutError
	if !errors.As(err, &timedOut) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
	if timedOut.Timeout != 10*time.Millisecond {
		t.Errorf("Timeout = %v, want 10ms", timedOut.Timeout)
	}
}

func TestGuard_NonPositiveTimeoutIsPassthrough(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		value, err := Guard(timeout, func() (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 7, nil
		})
		if err != nil {
			t.Fatalf("timeout %v: unexpected error: %v", timeout, err)
		}
		if value != 7 {
			t.Errorf("timeout %v: value = %d, want 7", timeout, value)
		}
	}
}

func TestGuard_LateSettleAfterTimeoutDoesNotBlock(t *testing.T) {
	done := make(chan struct{})

	_, err := Guard(5*time.Millisecond, func() (int, error) {
		defer close(done)
		time.Sleep(30 * time.Millisecond)
		return 1, nil
	})

	var timedOut *TimeoutError
	if !errors.As(err, &timedOut) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background operation never settled")
	}
}

func TestIsErrorPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    bool
	}{
		{"success false", map[string]any{"success": false}, true},
		{"success true", map[string]any{"success": true, "result": "ok"}, false},
		{"errors list", map[string]any{"errors": []any{map[string]any{"code": 7009}}}, true},
		{"empty errors list", map[string]any{"errors": []any{}}, false},
		{"plain result", map[string]any{"result": []any{}}, false},
		{"not a map", []any{"x"}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsErrorPayload(tt.payload); got != tt.want {
				t.Errorf("IsErrorPayload() = %v, want %v", got, tt.want)
			}
		})
	}
}
