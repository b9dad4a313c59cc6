package run

import "context"

// Runner is the opaque model execution capability. One call is one attempt;
// the invoker never retries.
type Runner interface {
	Run(ctx context.Context, model string, input any, options map[string]any) (*Result, error)
}

// Result is the raw outcome of one model run. JSON carries a decoded payload;
// Binary carries a byte stream verbatim. Exactly one of the two is set.
type Result struct {
	JSON        any
	Binary      []byte
	ContentType string
}

// IsErrorPayload reports whether a decoded payload signals upstream failure:
// an explicit success=false field, or a non-empty errors list.
func IsErrorPayload(payload any) bool {
	m, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	if success, ok := m["success"].(bool); ok && !success {
		return true
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		return true
	}
	return false
}
