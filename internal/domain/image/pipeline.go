package image

import (
	"bytes"
	"strings"

	"github.com/disintegration/imaging"

	// Decoder registrations for normalisation and transcoding.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"

	apperrors "modelgate-server-go/internal/platform/errors"
)

// Normalize converts raw bytes plus an optional declared content type into a
// model-consumable Asset. AVIF containers are transcoded to PNG; everything
// else keeps its bytes, with the MIME type resolved from the declared type,
// magic-byte sniffing, or the PNG default, in that order. The resulting
// MimeType is always a non-empty "image/…" value.
func Normalize(declared string, data []byte) (*Asset, *apperrors.AiRunError) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "empty image payload")
	}

	if isAVIF(declared, data) {
		return transcodeToPNG(data)
	}

	return &Asset{
		Bytes:    data,
		MimeType: resolveMime(declared, data),
		Size:     int64(len(data)),
	}, nil
}

// transcodeToPNG fully decodes an AVIF payload and re-encodes it as PNG. A
// decode or encode failure is the caller's fault, never passed through.
func transcodeToPNG(data []byte) (*Asset, *apperrors.AiRunError) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "decode avif image", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "encode png image", err)
	}

	return &Asset{
		Bytes:    buf.Bytes(),
		MimeType: "image/png",
		Size:     int64(buf.Len()),
	}, nil
}

func resolveMime(declared string, data []byte) string {
	if mime := wellFormedImageType(declared); mime != "" {
		return mime
	}
	if mime := sniffMime(data); mime != "" {
		return mime
	}
	return "image/png"
}

// wellFormedImageType trusts a declared "image/…" content type, stripping any
// parameters. Anything else is considered untrustworthy.
func wellFormedImageType(declared string) string {
	mime := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	if !strings.HasPrefix(mime, "image/") || len(mime) == len("image/") {
		return ""
	}
	if strings.ContainsAny(mime, " \t") {
		return ""
	}
	return mime
}
