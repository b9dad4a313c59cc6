package detect

import (
	"math"

	apperrors "modelgate-server-go/internal/platform/errors"
)

// cornerAliases lists the key-naming conventions under which corner pairs
// have been observed in detection payloads.
var cornerAliases = [][4]string{
	{"xmin", "ymin", "xmax", "ymax"},
	{"x1", "y1", "x2", "y2"},
	{"left", "top", "right", "bottom"},
}

// EvaluateBoxes interprets an object-detection payload: true iff any
// detection is labelled "person" with a score at or above threshold and,
// when minAreaRatio is active, a normalised box area at or above it. A box
// that cannot be parsed skips the area check rather than failing it.
func EvaluateBoxes(raw any, threshold, minAreaRatio float64) (bool, *apperrors.AiRunError) {
	detections, ok := detectionList(raw)
	if !ok {
		return false, apperrors.New(
			apperrors.CodeRunResponseError,
			"detection payload is not a list of boxes",
		).WithRaw(raw)
	}

	for _, entry := range detections {
		det, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		label, _ := det["label"].(string)
		score, scoreOK := toFloat(det["score"])
		if label != "person" || !scoreOK || score < threshold {
			continue
		}
		if minAreaRatio > 0 {
			if width, height, ok := boxDims(det["box"]); ok {
				if width*height < minAreaRatio {
					continue
				}
			}
		}
		return true, nil
	}

	return false, nil
}

// detectionList accepts either a bare array or a REST envelope with the
// array under "result".
func detectionList(raw any) ([]any, bool) {
	if list, ok := raw.([]any); ok {
		return list, true
	}
	if m, ok := raw.(map[string]any); ok {
		if list, ok := m["result"].([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// boxDims extracts normalised width and height from whichever box shape is
// present: corner pairs under known aliases, explicit width/height fields, or
// a 4-element ordered array. Extraction is rejected when a dimension is
// non-finite, non-positive, or exceeds 1.
func boxDims(box any) (width, height float64, ok bool) {
	switch b := box.(type) {
	case map[string]any:
		for _, alias := range cornerAliases {
			x0, ok0 := toFloat(b[alias[0]])
			y0, ok1 := toFloat(b[alias[1]])
			x1, ok2 := toFloat(b[alias[2]])
			y1, ok3 := toFloat(b[alias[3]])
			if ok0 && ok1 && ok2 && ok3 {
				return validateDims(x1-x0, y1-y0)
			}
		}
		if w, okW := toFloat(b["width"]); okW {
			if h, okH := toFloat(b["height"]); okH {
				return validateDims(w, h)
			}
		}
	case []any:
		if len(b) == 4 {
			x0, ok0 := toFloat(b[0])
			y0, ok1 := toFloat(b[1])
			x1, ok2 := toFloat(b[2])
			y1, ok3 := toFloat(b[3])
			if ok0 && ok1 && ok2 && ok3 {
				return validateDims(x1-x0, y1-y0)
			}
		}
	}
	return 0, 0, false
}

func validateDims(width, height float64) (float64, float64, bool) {
	if math.IsNaN(width) || math.IsInf(width, 0) || math.IsNaN(height) || math.IsInf(height, 0) {
		return 0, 0, false
	}
	if width <= 0 || height <= 0 || width > 1 || height > 1 {
		return 0, 0, false
	}
	return width, height, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
