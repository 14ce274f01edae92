package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-liveqa/internal/infra/bus"
	"github.com/arklim/social-platform-liveqa/internal/infra/config"
	redisrepo "github.com/arklim/social-platform-liveqa/internal/repository/redis"
	"github.com/arklim/social-platform-liveqa/internal/transport/http/middleware"
	"github.com/arklim/social-platform-liveqa/internal/usecase"
)

func newTestEngine(t *testing.T, cfg *config.AppConfig) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	log := zaptest.NewLogger(t)
	eventBus := bus.NewLocalBus(16, log)
	t.Cleanup(eventBus.Close)

	questions := usecase.NewQuestionService(
		redisrepo.NewQuestionRepository(client),
		redisrepo.NewViewCacheRepository(client, "questions:latest"),
		eventBus,
		cfg.Cache.LatestTTL,
		cfg.Cache.LatestLimit,
		log,
	)
	streams := usecase.NewStreamService(questions, eventBus, usecase.StreamConfig{
		HeartbeatInterval: time.Hour,
		ReconcileInterval: time.Hour,
	}, log)
	auth := usecase.NewAuthService(redisrepo.NewSessionRepository(client), cfg.Session.TTL, log)

	limiter := middleware.NewRateLimiter(redisrepo.NewRateLimitRepository(client, redisrepo.SlidingWindowConfig{
		KeyPrefix: "liveqa:rate-limit",
		TTL:       2 * cfg.RateLimit.WindowDuration,
	}), log)

	return Register(Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: limiter,
		Services:    ServiceSet{Questions: questions, Streams: streams, Auth: auth},
	})
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "liveqa-service", Env: "test"},
		RateLimit: config.RateLimitSettings{
			WindowDuration: time.Minute,
			CreateMax:      5,
			LikeMax:        30,
			DeleteMax:      10,
		},
		Cache:   config.CacheSettings{LatestTTL: 30 * time.Second, LatestLimit: 20},
		Stream:  config.StreamSettings{HeartbeatInterval: 5 * time.Second, ReconcileInterval: 1500 * time.Millisecond, SubscriberBuffer: 64},
		Session: config.SessionSettings{TTL: time.Hour, CookieName: "sid"},
	}
}

func request(r *gin.Engine, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_HealthAndMetricsEndpoints(t *testing.T) {
	r := newTestEngine(t, testConfig())

	if w := request(r, http.MethodGet, "/healthz", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
	if w := request(r, http.MethodGet, "/readyz", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", w.Code)
	}
	if w := request(r, http.MethodGet, "/metrics", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
}

func TestRoutes_QuestionLifecycle(t *testing.T) {
	r := newTestEngine(t, testConfig())

	w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "end to end"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		OK   bool `json:"ok"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	if w := request(r, http.MethodPost, "/api/actions/like", gin.H{"id": created.Data.ID}, nil); w.Code != http.StatusOK {
		t.Fatalf("like: expected 200, got %d", w.Code)
	}

	w = request(r, http.MethodGet, "/api/questions", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}

	var listed struct {
		Data []struct {
			ID    string `json:"id"`
			Likes int64  `json:"likes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed.Data) != 1 || listed.Data[0].Likes != 1 {
		t.Fatalf("unexpected list state: %+v", listed.Data)
	}

	if w := request(r, http.MethodPost, "/api/actions/delete", gin.H{"id": created.Data.ID}, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
}

func TestRoutes_CreateBudgetEnforced(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.CreateMax = 2
	r := newTestEngine(t, cfg)

	headers := map[string]string{"X-Forwarded-For": "1.2.3.4"}
	for i := 0; i < 2; i++ {
		if w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "spam"}, headers); w.Code != http.StatusOK {
			t.Fatalf("create %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "spam"}, headers)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the create budget, got %d", w.Code)
	}

	var body struct {
		OK                bool   `json:"ok"`
		Error             string `json:"error"`
		RetryAfterSeconds int    `json:"retryAfterSeconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body.OK || body.RetryAfterSeconds < 1 {
		t.Fatalf("unexpected 429 body: %+v", body)
	}

	// Reads stay unthrottled.
	if w := request(r, http.MethodGet, "/api/questions", nil, headers); w.Code != http.StatusOK {
		t.Fatalf("list must not be rate limited, got %d", w.Code)
	}
}

func TestRoutes_BudgetsAreScopedPerAction(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.CreateMax = 1
	r := newTestEngine(t, cfg)

	headers := map[string]string{"X-Forwarded-For": "1.2.3.4"}
	if w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "once"}, headers); w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", w.Code)
	}
	if w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "twice"}, headers); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected create budget exhausted, got %d", w.Code)
	}

	// Likes draw from their own budget.
	if w := request(r, http.MethodPost, "/api/actions/like", gin.H{"id": "any"}, headers); w.Code != http.StatusOK {
		t.Fatalf("like must use a separate budget, got %d", w.Code)
	}
}

func TestRoutes_LoginIdentityScopesRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.CreateMax = 1
	r := newTestEngine(t, cfg)

	w := request(r, http.MethodPost, "/api/auth/login", gin.H{"email": "person@example.com", "password": "pw"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}

	var sid *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "sid" {
			sid = cookie
		}
	}
	if sid == nil {
		t.Fatalf("expected sid cookie from login")
	}

	// Exhaust the anonymous IP bucket.
	anon := map[string]string{"X-Forwarded-For": "9.9.9.9"}
	request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "anon"}, anon)
	if w := request(r, http.MethodPost, "/api/questions/new", gin.H{"text": "anon"}, anon); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected anonymous bucket exhausted, got %d", w.Code)
	}

	// The logged-in user keys on the session identity, not the IP.
	req := httptest.NewRequest(http.MethodPost, "/api/questions/new", bytes.NewBufferString(`{"text":"authed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "9.9.9.9")
	req.AddCookie(sid)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected authed request to use its own bucket, got %d: %s", rec.Code, rec.Body.String())
	}
}
