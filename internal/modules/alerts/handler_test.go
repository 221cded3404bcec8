package alerts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/commonshub/core/internal/config"
	"github.com/commonshub/core/internal/pkg/ratelimit"
)

func testRouter(t *testing.T, env string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testDB(t)
	svc := NewService(db)
	cfg := &config.AppConfig{Env: env, Site: config.SiteConfig{Name: "Commons Hub"}}
	h := NewHandler(svc, ratelimit.NewMemory(), nil, cfg, zap.NewNop())

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v2"))
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubscribeConfirmScenario(t *testing.T) {
	r := testRouter(t, "development")

	w := doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe",
		`{"email": "a@b.com", "channels": ["email"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("subscribe status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		OK     bool          `json:"ok"`
		Tokens []IssuedToken `json:"tokens"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK {
		t.Error("ok = false, want true")
	}
	if len(body.Tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(body.Tokens))
	}
	if body.Tokens[0].Channel != ChannelEmail {
		t.Errorf("token channel = %q", body.Tokens[0].Channel)
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(body.Tokens[0].Token) {
		t.Errorf("token = %q, want 64 lowercase hex chars", body.Tokens[0].Token)
	}

	w = doJSON(r, http.MethodGet, "/api/v2/alerts/confirm?token="+body.Tokens[0].Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirm status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("confirm body = %s", w.Body.String())
	}

	// Replaying the consumed token must fail.
	w = doJSON(r, http.MethodGet, "/api/v2/alerts/confirm?token="+body.Tokens[0].Token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("replayed confirm status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid or used token") {
		t.Errorf("replay body = %s", w.Body.String())
	}
}

func TestTokensHiddenInProduction(t *testing.T) {
	r := testRouter(t, "production")

	w := doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe",
		`{"email": "prod@example.org", "channels": ["email"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "tokens") {
		t.Errorf("production response leaked tokens: %s", w.Body.String())
	}
}

func TestSubscribeValidationErrors(t *testing.T) {
	r := testRouter(t, "development")

	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid request body"},
		{"no channels", `{"email": "a@b.com", "channels": []}`, "select at least one channel"},
		{"bad email", `{"email": "nope", "channels": ["email"]}`, "invalid email address"},
		{"bad phone", `{"phone": "12", "channels": ["sms"]}`, "invalid phone number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tc.want {
				t.Errorf("error = %q, want %q", body.Error, tc.want)
			}
		})
	}
}

func TestConfirmMissingToken(t *testing.T) {
	r := testRouter(t, "development")

	w := doJSON(r, http.MethodGet, "/api/v2/alerts/confirm", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "missing token") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestWrongActionEndpoint(t *testing.T) {
	r := testRouter(t, "development")

	w := doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe",
		`{"email": "cross@example.org", "channels": ["email"]}`)
	var body struct {
		Tokens []IssuedToken `json:"tokens"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}

	w = doJSON(r, http.MethodGet, "/api/v2/alerts/unsubscribe-confirm?token="+body.Tokens[0].Token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRequestRateLimit(t *testing.T) {
	r := testRouter(t, "development")

	var last *httptest.ResponseRecorder
	for i := 0; i < requestBudget+1; i++ {
		last = doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe",
			`{"email": "limit@example.org", "channels": ["email"]}`)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

func TestRateLimitIsPerClientAndOperation(t *testing.T) {
	r := testRouter(t, "development")

	// Exhaust the subscribe budget for one client.
	for i := 0; i < requestBudget; i++ {
		doJSON(r, http.MethodPost, "/api/v2/alerts/subscribe",
			`{"email": "clienta@example.org", "channels": ["email"]}`)
	}

	// The confirm budget for the same client is untouched.
	w := doJSON(r, http.MethodGet, "/api/v2/alerts/confirm?token=unknown", "")
	if w.Code == http.StatusTooManyRequests {
		t.Error("confirm shares a budget with subscribe-request")
	}

	// Another client keeps its own subscribe budget.
	req := httptest.NewRequest(http.MethodPost, "/api/v2/alerts/subscribe",
		strings.NewReader(`{"email": "clientb@example.org", "channels": ["email"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}
