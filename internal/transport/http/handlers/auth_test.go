package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *handlerFixture) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	fixture := newHandlerFixture(t)
	handler := NewAuthHandler(fixture.auth, "sid", false)

	r := gin.New()
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	return r, fixture
}

func TestAuthHandler_LoginSetsSessionCookie(t *testing.T) {
	r, fixture := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/auth/login", gin.H{"email": "person@example.com", "password": "hunter2"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp OKResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok=true, got %+v", resp)
	}

	cookies := w.Result().Cookies()
	var sid string
	for _, cookie := range cookies {
		if cookie.Name == "sid" {
			sid = cookie.Value
			if !cookie.HttpOnly {
				t.Fatalf("sid cookie must be http-only")
			}
			if cookie.MaxAge <= 0 {
				t.Fatalf("sid cookie must carry a positive max-age, got %d", cookie.MaxAge)
			}
		}
	}
	if sid == "" {
		t.Fatalf("expected sid cookie, got %+v", cookies)
	}

	session, err := fixture.auth.Resolve(context.Background(), sid)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if session.Email != "person@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
}

func TestAuthHandler_LoginRejectsMissingCredentials(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/auth/login", gin.H{"email": "", "password": ""})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.OK || resp.Error != "Invalid credentials" {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(r, http.MethodPost, "/api/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "sid" && cookie.MaxAge >= 0 {
			t.Fatalf("expected expired sid cookie, got max-age %d", cookie.MaxAge)
		}
	}
}
