package detect

import (
	"strings"
	"testing"

	domainimage "modelgate-server-go/internal/domain/image"
	apperrors "modelgate-server-go/internal/platform/errors"
)

func TestEvaluateVisionReply(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want bool
	}{
		{
			name: "object verdict",
			raw:  map[string]any{"response": map[string]any{"isPerson": true}},
			want: true,
		},
		{
			name: "nested rest envelope",
			raw: map[string]any{
				"result": map[string]any{"response": map[string]any{"isPerson": false}},
			},
			want: false,
		},
		{
			name: "bare object",
			raw:  map[string]any{"isPerson": true},
			want: true,
		},
		{
			name: "string json",
			raw:  map[string]any{"response": `{"isPerson": true}`},
			want: true,
		},
		{
			name: "string json wrapped in prose",
			raw:  map[string]any{"response": `Sure! Here is the answer: {"isPerson": false} Hope that helps.`},
			want: false,
		},
		{
			name: "bare boolean reply",
			raw:  map[string]any{"response": true},
			want: true,
		},
		{
			name: "result without response key",
			raw:  map[string]any{"result": map[string]any{"isPerson": true}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, runErr := EvaluateVisionReply(tt.raw)
			if runErr != nil {
				t.Fatalf("unexpected error: %v", runErr)
			}
			if got != tt.want {
				t.Errorf("EvaluateVisionReply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateVisionReply_Unparseable(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"prose without json", map[string]any{"response": "I cannot tell."}},
		{"wrong field type", map[string]any{"response": map[string]any{"isPerson": "yes"}}},
		{"non boolean json", map[string]any{"response": `{"isPerson": "yes"}`}},
		{"numeric reply", map[string]any{"response": 42.0}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, runErr := EvaluateVisionReply(tt.raw)
			if runErr == nil {
				t.Fatal("expected an error")
			}
			if runErr.Code != apperrors.CodeRunResponseError {
				t.Errorf("Code = %s, want %s", runErr.Code, apperrors.CodeRunResponseError)
			}
		})
	}
}

func TestVisionInput(t *testing.T) {
	asset := &domainimage.Asset{
		Bytes:    []byte{0x89, 0x50, 0x4E, 0x47},
		MimeType: "image/png",
		Size:     4,
	}

	input := VisionInput(asset, 0.2)

	messages, ok := input["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected one message, got %v", input["messages"])
	}
	message := messages[0].(map[string]any)
	if message["role"] != "user" {
		t.Errorf("role = %v, want user", message["role"])
	}

	content := message["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected text and image parts, got %d", len(content))
	}

	text := content[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "isPerson") {
		t.Errorf("prompt does not request the verdict schema: %q", text)
	}
	if !strings.Contains(text, "20%") {
		t.Errorf("prompt does not mention the area constraint: %q", text)
	}

	imagePart := content[1].(map[string]any)["image_url"].(map[string]any)
	uri := imagePart["url"].(string)
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("unexpected data uri prefix: %q", uri)
	}

	if input["temperature"] != 0 {
		t.Errorf("temperature = %v, want 0", input["temperature"])
	}
	if input["max_tokens"] != visionMaxTokens {
		t.Errorf("max_tokens = %v, want %d", input["max_tokens"], visionMaxTokens)
	}
}

func TestVisionInput_NoAreaConstraint(t *testing.T) {
	asset := &domainimage.Asset{Bytes: []byte{1}, MimeType: "image/jpeg", Size: 1}

	input := VisionInput(asset, 0)
	messages := input["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)

	if strings.Contains(text, "%") {
		t.Errorf("prompt should not mention an area constraint: %q", text)
	}
}
