package detect

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	domainimage "modelgate-server-go/internal/domain/image"
	apperrors "modelgate-server-go/internal/platform/errors"
)

// visionMaxTokens keeps the reply small; the model only has to produce one
// JSON object.
const visionMaxTokens = 64

// VisionInput builds the single-turn vision-language payload: a
// JSON-only instruction plus the image inlined as a base64 data URI, with a
// requested {isPerson: boolean} schema, temperature 0 and a small token cap.
func VisionInput(asset *domainimage.Asset, minAreaRatio float64) map[string]any {
	prompt := "Look at the image and decide whether at least one person is clearly visible"
	if minAreaRatio > 0 {
		prompt += fmt.Sprintf(" and takes up at least %.0f%% of the frame", minAreaRatio*100)
	}
	prompt += `. Respond with JSON only, exactly matching {"isPerson": boolean}. No prose.`

	dataURI := "data:" + asset.MimeType + ";base64," + base64.StdEncoding.EncodeToString(asset.Bytes)

	return map[string]any{
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": prompt},
					map[string]any{
						"type":      "image_url",
						"image_url": map[string]any{"url": dataURI},
					},
				},
			},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"isPerson": map[string]any{"type": "boolean"},
				},
				"required": []any{"isPerson"},
			},
		},
		"temperature": 0,
		"max_tokens":  visionMaxTokens,
	}
}

// EvaluateVisionReply extracts the isPerson verdict from a vision-language
// reply. The reply is unwrapped through up to two levels of nesting
// ("response", or "result.response"); an object is used directly, a string is
// parsed as JSON with a brace-substring fallback. Anything else is a
// response-shape failure carrying the raw reply.
func EvaluateVisionReply(raw any) (bool, *apperrors.AiRunError) {
	switch reply := unwrapReply(raw).(type) {
	case map[string]any:
		if verdict, ok := reply["isPerson"].(bool); ok {
			return verdict, nil
		}
	case bool:
		return reply, nil
	case string:
		if verdict, ok := parseVerdict(reply); ok {
			return verdict, nil
		}
	}

	return false, apperrors.New(
		apperrors.CodeRunResponseError,
		"vision reply does not contain an isPerson boolean",
	).WithRaw(raw)
}

func unwrapReply(raw any) any {
	m, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if response, exists := m["response"]; exists {
		return response
	}
	if result, exists := m["result"]; exists {
		if rm, ok := result.(map[string]any); ok {
			if response, exists := rm["response"]; exists {
				return response
			}
		}
		return result
	}
	return raw
}

// parseVerdict parses reply text as JSON; when the model wrapped the object
// in prose, the substring between the first "{" and last "}" is retried.
func parseVerdict(text string) (bool, bool) {
	if verdict, ok := decodeVerdict(text); ok {
		return verdict, true
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return false, false
	}
	return decodeVerdict(text[start : end+1])
}

func decodeVerdict(text string) (bool, bool) {
	var decoded map[string]any
	if err := sonic.Unmarshal([]byte(text), &decoded); err != nil {
		return false, false
	}
	verdict, ok := decoded["isPerson"].(bool)
	return verdict, ok
}
