package errors

// WireCause is the sanitised serialisation of an underlying cause. Stack
// traces are never exposed.
type WireCause struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// WireError is the error half of the HTTP error envelope.
type WireError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	TraceID    string `json:"traceId,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Raw        any    `json:"raw,omitempty"`
	Cause      any    `json:"cause,omitempty"`
}

// WireEnvelope is the body of every failing HTTP response.
type WireEnvelope struct {
	Success bool      `json:"success"`
	Error   WireError `json:"error"`
}

// Wire builds the serialisable envelope for the error. Raw is carried only
// when it was explicitly attached (response-error case).
func (e *AiRunError) Wire() WireEnvelope {
	wire := WireError{
		Code:       e.Code,
		Message:    e.Message,
		TraceID:    e.TraceID,
		DurationMs: e.DurationMs,
		Raw:        e.Raw,
	}

	if e.Cause != nil {
		if typed, ok := As(e.Cause); ok {
			wire.Cause = WireCause{
				Name:    string(typed.Code),
				Message: typed.Message,
			}
		} else {
			wire.Cause = e.Cause.Error()
		}
	}

	return WireEnvelope{Success: false, Error: wire}
}
