package modelrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"modelgate-server-go/internal/domain/run"
	platformtesting "modelgate-server-go/internal/platform/testing"
	httptransport "modelgate-server-go/internal/transport/http"
)

type stubRunner struct {
	result *run.Result
	err    error
	delay  time.Duration
}

func (s *stubRunner) Run(ctx context.Context, model string, input any, options map[string]any) (*run.Result, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.result, s.err
}

func newTestEngine(t *testing.T, runner run.Runner) *gin.Engine {
	t.Helper()

	cfg := platformtesting.SetupTestConfig(t)
	cfg.AI.TimeoutMs = 100
	logger := platformtesting.SetupTestLogger(t)

	invoker, err := run.NewInvoker(runner, logger)
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}
	service, err := NewService(cfg, invoker, logger)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(httptransport.TraceMiddleware())
	service.Register(engine.Group("/api"))
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/run", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", "trace-run")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) (code, traceID string) {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			TraceID string `json:"traceId"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.Success {
		t.Error("success must be false")
	}
	return envelope.Error.Code, envelope.Error.TraceID
}

func TestHandleRun_Success(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{
		result: &run.Result{JSON: map[string]any{"result": map[string]any{"response": "hello"}}},
	})

	w := postJSON(t, engine, `{"model":"@cf/test/model","input":{"prompt":"hi"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if _, ok := body["result"]; !ok {
		t.Errorf("payload not passed through: %v", body)
	}
}

func TestHandleRun_BinaryPassthrough(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{
		result: &run.Result{Binary: []byte{0x01, 0x02, 0x03}, ContentType: "audio/mpeg"},
	})

	w := postJSON(t, engine, `{"model":"@cf/test/tts"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %q, want audio/mpeg", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), []byte{0x01, 0x02, 0x03}) {
		t.Error("binary body not passed through verbatim")
	}
}

func TestHandleRun_InvalidBody(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{result: &run.Result{JSON: map[string]any{}}})

	for _, body := range []string{`{`, `{"input":{}}`, `{"model":"  "}`} {
		w := postJSON(t, engine, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
			continue
		}
		code, _ := decodeError(t, w)
		if code != "INVALID_INPUT" {
			t.Errorf("body %q: code = %q, want INVALID_INPUT", body, code)
		}
	}
}

func TestHandleRun_Timeout(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{
		result: &run.Result{JSON: map[string]any{}},
		delay:  500 * time.Millisecond,
	})

	w := postJSON(t, engine, `{"model":"@cf/test/slow"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", w.Code)
	}
	code, traceID := decodeError(t, w)
	if code != "AI_RUN_TIMEOUT" {
		t.Errorf("code = %q, want AI_RUN_TIMEOUT", code)
	}
	if traceID != "trace-run" {
		t.Errorf("traceId = %q, want trace-run", traceID)
	}
}

func TestHandleRun_UpstreamErrorPayload(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{
		result: &run.Result{JSON: map[string]any{
			"success": false,
			"errors":  []any{map[string]any{"code": 7009.0, "message": "upstream unavailable"}},
		}},
	})

	w := postJSON(t, engine, `{"model":"@cf/test/model"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	code, _ := decodeError(t, w)
	if code != "AI_RUN_RESPONSE_ERROR" {
		t.Errorf("code = %q, want AI_RUN_RESPONSE_ERROR", code)
	}
}

func TestHandleRun_RunnerFailure(t *testing.T) {
	engine := newTestEngine(t, &stubRunner{err: errors.New("connect: refused")})

	w := postJSON(t, engine, `{"model":"@cf/test/model"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	code, _ := decodeError(t, w)
	if code != "AI_RUN_EXCEPTION" {
		t.Errorf("code = %q, want AI_RUN_EXCEPTION", code)
	}
}
