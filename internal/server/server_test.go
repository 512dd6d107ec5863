package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/valpere/codetran/internal/config"
	"github.com/valpere/codetran/internal/orchestrator"
	"github.com/valpere/codetran/internal/ratelimit"
	"github.com/valpere/codetran/internal/translator"
	"github.com/valpere/codetran/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedDetector string

func (d fixedDetector) Detect(string) (string, bool) { return string(d), true }

type stubCompleter struct {
	text  string
	err   error
	calls int
	user  string
}

func (s *stubCompleter) Complete(_ context.Context, _, user string, _ int) (string, error) {
	s.calls++
	s.user = user
	return s.text, s.err
}

func newTestEnv(t *testing.T, completer translator.Completer, limiter *ratelimit.Limiter) http.Handler {
	t.Helper()
	cfg := config.ServerConfig{Port: 3001, StaticDir: t.TempDir(), MaxBodyBytes: 100 * 1024}
	orch := orchestrator.New(validator.New(fixedDetector("python")), completer, orchestrator.OrchestratorConfig{})
	return New(cfg, orch, limiter).Handler()
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/translate-code", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
	return body
}

func TestTranslateCode_Success(t *testing.T) {
	c := &stubCompleter{text: "  public class Main {}  "}
	h := newTestEnv(t, c, nil)

	w := postJSON(h, `{"inputCode":"print(1)  # say hi","sourceLang":"python","targetLang":"java"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decode(t, w)
	if body["success"] != true || body["translatedCode"] != "public class Main {}" {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Error("success response must not carry an error field")
	}
	if c.user != "Translate the following code from python to java:\n\nprint(1)" {
		t.Errorf("unexpected prompt %q", c.user)
	}
}

func TestTranslateCode_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{
			name:   "missing target",
			body:   `{"inputCode":"x = 1","sourceLang":"python"}`,
			status: http.StatusBadRequest,
			msg:    "Missing required fields.",
		},
		{
			name:   "empty body",
			body:   ``,
			status: http.StatusBadRequest,
			msg:    "Missing required fields.",
		},
		{
			name:   "ruby source",
			body:   `{"inputCode":"puts 1","sourceLang":"ruby","targetLang":"python"}`,
			status: http.StatusBadRequest,
			msg:    "Unsupported source or target language.",
		},
		{
			name:   "too many lines",
			body:   fmt.Sprintf(`{"inputCode":%q,"sourceLang":"python","targetLang":"java"}`, strings.Repeat("x\n", 1500)),
			status: http.StatusTooManyRequests,
			msg:    "Rate limit exceeded due to large input size. Please try again; max limit is 1500 lines.",
		},
		{
			name:   "malformed json",
			body:   `{"inputCode":`,
			status: http.StatusBadRequest,
			msg:    "Invalid JSON body.",
		},
		{
			name:   "trailing bytes after the object",
			body:   `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"} extra`,
			status: http.StatusBadRequest,
			msg:    "Invalid JSON body.",
		},
		{
			name:   "keys are case sensitive",
			body:   `{"INPUTCODE":"print(1)","SOURCELANG":"python","TARGETLANG":"java"}`,
			status: http.StatusBadRequest,
			msg:    "Missing required fields.",
		},
		{
			name:   "null field",
			body:   `{"inputCode":null,"sourceLang":"python","targetLang":"java"}`,
			status: http.StatusBadRequest,
			msg:    "Missing required fields.",
		},
		{
			name:   "array body",
			body:   `[1,2]`,
			status: http.StatusBadRequest,
			msg:    "Missing required fields.",
		},
		{
			name:   "bare string body",
			body:   `"print(1)"`,
			status: http.StatusBadRequest,
			msg:    "Invalid JSON body.",
		},
		{
			name:   "wrong field type",
			body:   `{"inputCode":5,"sourceLang":"python","targetLang":"java"}`,
			status: http.StatusBadRequest,
			msg:    "Invalid JSON body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubCompleter{text: "unused"}
			w := postJSON(newTestEnv(t, c, nil), tt.body)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			body := decode(t, w)
			if body["success"] != false || body["error"] != tt.msg {
				t.Errorf("unexpected body %v", body)
			}
			if c.calls != 0 {
				t.Errorf("model must not be called, got %d calls", c.calls)
			}
		})
	}
}

func TestTranslateCode_BodyTooLarge(t *testing.T) {
	cfg := config.ServerConfig{StaticDir: t.TempDir(), MaxBodyBytes: 64}
	orch := orchestrator.New(validator.New(fixedDetector("python")), &stubCompleter{}, orchestrator.OrchestratorConfig{})
	h := New(cfg, orch, nil).Handler()

	body := fmt.Sprintf(`{"inputCode":%q,"sourceLang":"python","targetLang":"java"}`, strings.Repeat("a", 200))
	w := postJSON(h, body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestTranslateCode_ProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		respBody string
		msg      string
	}{
		{"message relayed", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "Incorrect API key provided"},
		{"generic message", http.StatusBadRequest, `{}`, "Invalid request. Please check the input."},
		{"provider rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, "Rate limit reached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.respBody))
			}))
			defer upstream.Close()

			gw := translator.NewOpenAIGateway(translator.Config{APIKey: "sk-test", BaseURL: upstream.URL})
			w := postJSON(newTestEnv(t, gw, nil), `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`)

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if body := decode(t, w); body["error"] != tt.msg {
				t.Errorf("unexpected error %v", body["error"])
			}
		})
	}
}

func TestTranslateCode_Unreachable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	gw := translator.NewOpenAIGateway(translator.Config{APIKey: "sk-test", BaseURL: url, Timeout: time.Second})
	w := postJSON(newTestEnv(t, gw, nil), `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := decode(t, w); body["error"] != "Failed to reach the OpenAI service. Please try again." {
		t.Errorf("unexpected error %v", body["error"])
	}
}

func TestTranslateCode_RateLimited(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Window: time.Minute, Max: 2})
	c := &stubCompleter{text: "ok"}
	h := newTestEnv(t, c, limiter)

	payload := `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`
	for i := 0; i < 2; i++ {
		if w := postJSON(h, payload); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := postJSON(h, payload)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if body := decode(t, w); body["error"] != ratelimit.Message {
		t.Errorf("unexpected error %v", body["error"])
	}
	if c.calls != 2 {
		t.Errorf("expected 2 model calls, got %d", c.calls)
	}

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Errorf("health check must not be rate limited, got %d", health.Code)
	}
}

func TestTranslateCode_ForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Window: time.Minute, Max: 2})
	c := &stubCompleter{text: "ok"}
	h := newTestEnv(t, c, limiter)

	payload := `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`
	var statuses []int
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/translate-code", strings.NewReader(payload))
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i))
		h.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	want := []int{200, 200, 429, 429, 429}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", statuses, want)
		}
	}
	if c.calls != 2 {
		t.Errorf("expected 2 model calls, got %d", c.calls)
	}
}

func TestTranslateCode_ForwardedForFromTrustedProxy(t *testing.T) {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{Window: time.Minute, Max: 1})
	cfg := config.ServerConfig{StaticDir: t.TempDir(), MaxBodyBytes: 1024, TrustedProxies: []string{"198.51.100.0/24"}}
	orch := orchestrator.New(validator.New(fixedDetector("python")), &stubCompleter{text: "ok"}, orchestrator.OrchestratorConfig{})
	h := New(cfg, orch, limiter).Handler()

	payload := `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/translate-code", strings.NewReader(payload))
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("client %d behind the proxy: expected 200, got %d", i, w.Code)
		}
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(" {\"targetLang\":\"java\",\"inputCode\":\"a\\nb\",\"sourceLang\":\"python\",\"extra\":1}\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.InputCode != "a\nb" || req.SourceLang != "python" || req.TargetLang != "java" {
		t.Errorf("unexpected request %+v", req)
	}

	for _, body := range []string{`{"inputCode":"x"}{}`, `{"inputCode":true}`, `{"sourceLang":["python"]}`, `42`, ` `} {
		if _, err := decodeRequest([]byte(body)); err == nil {
			t.Errorf("decodeRequest(%q) should fail", body)
		}
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{&validator.ValidationError{Message: "bad"}, 400, "bad"},
		{&validator.QuotaError{Lines: 2000, Limit: 1500}, 429, "Rate limit exceeded due to large input size. Please try again; max limit is 1500 lines."},
		{fmt.Errorf("call: %w", &translator.ProviderError{Status: 503, Message: "overloaded"}), 503, "overloaded"},
		{&translator.ProviderError{Status: 200}, http.StatusBadGateway, msgProviderGeneric},
		{translator.ErrMalformedResponse, 500, msgUnreachable},
	}
	for _, tt := range tests {
		status, msg := errorResponse(tt.err)
		if status != tt.status || msg != tt.msg {
			t.Errorf("errorResponse(%v) = %d %q, want %d %q", tt.err, status, msg, tt.status, tt.msg)
		}
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.ServerConfig{StaticDir: dir, MaxBodyBytes: 1024}
	orch := orchestrator.New(validator.New(fixedDetector("python")), &stubCompleter{}, orchestrator.OrchestratorConfig{})
	h := New(cfg, orch, nil).Handler()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/", 200, "<html>app</html>"},
		{http.MethodGet, "/editor/42", 200, "<html>app</html>"},
		{http.MethodGet, "/assets/app.js", 200, "console.log(1)"},
		{http.MethodGet, "/../../etc/passwd", 200, "<html>app</html>"},
		{http.MethodDelete, "/anything", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("unexpected body %q", w.Body.String())
			}
		})
	}
}

func TestMiddleware_Headers(t *testing.T) {
	h := newTestEnv(t, &stubCompleter{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/translate-code", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	for _, k := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "X-Request-ID"} {
		if w.Header().Get(k) == "" {
			t.Errorf("missing %s header", k)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestEnv(t, &stubCompleter{text: "ok"}, nil)
	postJSON(h, `{"inputCode":"print(1)","sourceLang":"python","targetLang":"java"}`)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "codetran_translation_requests_total") {
		t.Error("expected translation counter in metrics output")
	}
}

func TestRun_Shutdown(t *testing.T) {
	cfg := config.ServerConfig{Port: freePort(t), StaticDir: t.TempDir(), MaxBodyBytes: 1024}
	orch := orchestrator.New(validator.New(fixedDetector("python")), &stubCompleter{}, orchestrator.OrchestratorConfig{})
	s := New(cfg, orch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.Port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
