package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
	"modelgate-server-go/internal/platform/observability"
)

// DefaultTimeout bounds a model invocation when the caller does not override
// it.
const DefaultTimeout = 60 * time.Second

// Invocation describes one model call. One invocation is one attempt.
type Invocation struct {
	Model   string
	Input   any
	Options map[string]any
	Timeout time.Duration
	TraceID string
}

// Invoker wraps the model execution capability with the timeout guard,
// response-shape validation and per-outcome logging.
type Invoker struct {
	runner Runner
	logger *logging.Logger
}

// NewInvoker creates an invoker over the given execution capability.
func NewInvoker(runner Runner, logger *logging.Logger) (*Invoker, error) {
	if runner == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "model runner is required")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "logger is required")
	}
	return &Invoker{runner: runner, logger: logger}, nil
}

// Invoke runs the model once, bounded by the invocation timeout. Any failure
// is normalised to an *AiRunError carrying trace id and elapsed duration;
// success payloads pass through untouched.
func (iv *Invoker) Invoke(ctx context.Context, call Invocation) (*Result, *apperrors.AiRunError) {
	timeout := call.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	spanCtx, spanEnd := observability.StartSpan(ctx, "ai.run", call.Model)

	start := time.Now()
	result, err := Guard(timeout, func() (*Result, error) {
		return iv.runner.Run(spanCtx, call.Model, call.Input, call.Options)
	})
	elapsed := time.Since(start)

	if err != nil {
		runErr := iv.classify(err, call, timeout)
		runErr = runErr.WithTrace(call.TraceID).WithDuration(elapsed)
		iv.logOutcome(call, elapsed, runErr)
		spanEnd(runErr)
		return nil, runErr
	}

	if result == nil {
		runErr := apperrors.New(
			apperrors.CodeRunResponseError,
			fmt.Sprintf("model %s returned no result", call.Model),
		).WithTrace(call.TraceID).WithDuration(elapsed)
		iv.logOutcome(call, elapsed, runErr)
		spanEnd(runErr)
		return nil, runErr
	}

	if result.JSON != nil && IsErrorPayload(result.JSON) {
		runErr := apperrors.New(
			apperrors.CodeRunResponseError,
			fmt.Sprintf("model %s reported failure", call.Model),
		).WithRaw(result.JSON).WithTrace(call.TraceID).WithDuration(elapsed)
		iv.logOutcome(call, elapsed, runErr)
		spanEnd(runErr)
		return nil, runErr
	}

	iv.logOutcome(call, elapsed, nil)
	spanEnd(nil)
	return result, nil
}

func (iv *Invoker) classify(err error, call Invocation, timeout time.Duration) *apperrors.AiRunError {
	var timedOut *TimeoutError
	if errors.As(err, &timedOut) {
		return apperrors.New(
			apperrors.CodeRunTimeout,
			fmt.Sprintf("model %s timed out after %dms", call.Model, timeout.Milliseconds()),
		)
	}
	return apperrors.Wrap(
		apperrors.CodeRunException,
		fmt.Sprintf("model %s execution failed", call.Model),
		err,
	)
}

// logOutcome records exactly one structured line per invocation outcome.
func (iv *Invoker) logOutcome(call Invocation, elapsed time.Duration, runErr *apperrors.AiRunError) {
	fields := map[string]any{
		"model":       call.Model,
		"duration_ms": elapsed.Milliseconds(),
		"trace_id":    call.TraceID,
	}
	if runErr == nil {
		iv.logger.Info("model run completed", fields)
		return
	}
	fields["code"] = string(runErr.Code)
	iv.logger.Error("model run failed", fields)
}
