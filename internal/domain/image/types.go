package image

// Asset is the normalised image payload handed to the model invocation step.
// Immutable; discarded after the request completes.
type Asset struct {
	Bytes    []byte
	MimeType string
	Size     int64
}
