package users

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/shawarma-timaro/storefront/internal/auth"
	"github.com/shawarma-timaro/storefront/internal/domain"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, uid string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uid,
		"email": uid + "@example.com",
		"name":  "Test User",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// fakeProfileStore records calls so tests can assert nothing reaches the
// repository on validation failure.
type fakeProfileStore struct {
	profiles map[string]*domain.UserProfile
	updates  int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.UserProfile)}
}

func (f *fakeProfileStore) EnsureProfile(_ context.Context, identity auth.Identity) (*domain.UserProfile, error) {
	now := time.Now().UTC()
	if profile, ok := f.profiles[identity.UID]; ok {
		profile.LastLoginAt = now
		return profile, nil
	}
	profile := &domain.UserProfile{UID: identity.UID, CreatedAt: now, LastLoginAt: now}
	f.profiles[identity.UID] = profile
	return profile, nil
}

func (f *fakeProfileStore) GetProfile(_ context.Context, uid string) (*domain.UserProfile, error) {
	return f.profiles[uid], nil
}

func (f *fakeProfileStore) UpdateProfile(_ context.Context, uid string, update ProfileUpdate) (*domain.UserProfile, error) {
	f.updates++
	profile, ok := f.profiles[uid]
	if !ok {
		return nil, nil
	}
	if update.DisplayName != nil {
		profile.DisplayName = update.DisplayName
	}
	if update.Address != nil {
		profile.Address = update.Address
	}
	if update.Phone != nil {
		if *update.Phone == "" {
			profile.Phone = nil
		} else {
			profile.Phone = update.Phone
		}
	}
	return profile, nil
}

func (f *fakeProfileStore) ListAll(_ context.Context) ([]domain.UserProfile, error) {
	profiles := []domain.UserProfile{}
	for _, p := range f.profiles {
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func newTestMux(t *testing.T, store ProfileStore) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(store, logger)
	verifier := auth.NewVerifier(testSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/session", verifier.RequireUser(handler.HandleSession))
	mux.HandleFunc("GET /profile", verifier.RequireUser(handler.HandleGetProfile))
	mux.HandleFunc("PUT /profile", verifier.RequireUser(handler.HandleUpdateProfile))
	return mux
}

func authedRequest(t *testing.T, method, target, body, uid string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uid))
	return req
}

func TestHandler_HandleSession(t *testing.T) {
	store := newFakeProfileStore()
	mux := newTestMux(t, store)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/auth/session", "", "u1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.profiles["u1"] == nil {
		t.Error("expected the profile to be created")
	}
}

func TestHandler_HandleGetProfile(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		mux := newTestMux(t, newFakeProfileStore())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("returns 404 before first session", func(t *testing.T) {
		mux := newTestMux(t, newFakeProfileStore())

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/profile", "", "u1"))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleUpdateProfile(t *testing.T) {
	t.Run("rejects an invalid phone before any write", func(t *testing.T) {
		store := newFakeProfileStore()
		mux := newTestMux(t, store)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/profile", `{"phone":"12345"}`, "u1"))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
		}
		if store.updates != 0 {
			t.Errorf("expected no repository write on validation failure, got %d", store.updates)
		}

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Errors["phone"] == "" {
			t.Error("expected a field-level phone message")
		}
	})

	t.Run("normalizes and stores a valid phone", func(t *testing.T) {
		store := newFakeProfileStore()
		mux := newTestMux(t, store)

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/auth/session", "", "u1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("session setup failed: %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, authedRequest(t, http.MethodPut, "/profile", `{"phone":"+380 (50) 123-45-67","address":"Kyiv"}`, "u1"))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		profile := store.profiles["u1"]
		if profile.Phone == nil || *profile.Phone != "+380501234567" {
			t.Errorf("expected normalized phone, got %v", profile.Phone)
		}
		if profile.Address == nil || *profile.Address != "Kyiv" {
			t.Errorf("expected address Kyiv, got %v", profile.Address)
		}
	})
}
