package image

import (
	"bytes"
	"strings"
)

var imageSignatures = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/gif":  {0x47, 0x49, 0x46, 0x38},
	"image/webp": {0x52, 0x49, 0x46, 0x46},
}

// sniffMime resolves a MIME type from magic bytes. WEBP shares the RIFF
// prefix with other containers, so its brand at offset 8 is checked too.
func sniffMime(data []byte) string {
	for mime, signature := range imageSignatures {
		if len(data) < len(signature) || !bytes.Equal(data[:len(signature)], signature) {
			continue
		}
		if mime == "image/webp" {
			if len(data) < 12 || string(data[8:12]) != "WEBP" {
				continue
			}
		}
		return mime
	}
	return ""
}

const avifProbeLen = 32

// isAVIF recognises the AVIF still-image container, either from a declared
// content type or from the ftyp signature box carrying an avif/avis brand
// within the first 32 bytes.
func isAVIF(declared string, data []byte) bool {
	if strings.Contains(strings.ToLower(declared), "image/avif") {
		return true
	}
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}

	probe := data
	if len(probe) > avifProbeLen {
		probe = probe[:avifProbeLen]
	}
	return bytes.Contains(probe, []byte("avif")) || bytes.Contains(probe, []byte("avis"))
}
