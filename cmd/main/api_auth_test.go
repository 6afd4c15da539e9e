package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func setupAuthTest(t *testing.T) (*AuthAPI, http.Handler) {
	t.Helper()
	db, err := initDB(filepath.Join(t.TempDir(), "auth_test.db"))
	if err != nil {
		t.Fatalf("initDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = setupAuthSchema(db); err != nil {
		t.Fatalf("setupAuthSchema() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := NewAuthAPI(db, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	return api, api.Authenticate(mux)
}

func postJSON(t *testing.T, h http.Handler, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	if key != "" {
		req.Header.Set("tw-auth", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createTestKey(t *testing.T, h http.Handler, authKey string, scopes []string) CreateKeyResponse {
	t.Helper()
	rec := postJSON(t, h, "/api/auth/keys", authKey, CreateKeyRequest{
		Scopes:      scopes,
		Description: "test key",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp CreateKeyResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return resp
}

func TestValidateScopes(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"single scope", []string{"feeds:read"}, []string{"feeds:read"}, false},
		{"sorted and deduplicated", []string{"stats:read", "feeds:write", "stats:read"}, []string{"feeds:write", "stats:read"}, false},
		{"master collapses others", []string{"feeds:read", "*"}, []string{"*"}, false},
		{"empty list", nil, nil, true},
		{"unknown scope", []string{"feeds:read", "markov:train"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateScopes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateScopes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("validateScopes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthBootstrap(t *testing.T) {
	_, h := setupAuthTest(t)

	// With no keys stored the API is open and acts as master.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("open /me status = %d, want %d", rec.Code, http.StatusOK)
	}

	// The first key is forced to master scope regardless of the request.
	first := createTestKey(t, h, "", []string{"stats:read"})
	if !reflect.DeepEqual(first.Scopes, []string{"*"}) {
		t.Errorf("first key scopes = %v, want [*]", first.Scopes)
	}
	if !strings.HasPrefix(first.RawKey, apiKeyPrefix) {
		t.Errorf("raw key %q lacks the %q prefix", first.RawKey, apiKeyPrefix)
	}
	if first.CreatedAt == 0 {
		t.Error("created_at was not set on the new key")
	}

	// Once a key exists, unauthenticated requests are rejected.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthRejectsBadKeys(t *testing.T) {
	_, h := setupAuthTest(t)
	master := createTestKey(t, h, "", []string{"*"})

	tests := []struct {
		name string
		key  string
	}{
		{"missing prefix", strings.TrimPrefix(master.RawKey, apiKeyPrefix)},
		{"unknown key", apiKeyPrefix + strings.Repeat("00", 32)},
		{"empty header", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.key != "" {
				req.Header.Set("tw-auth", tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestCreateKeyScopeValidation(t *testing.T) {
	_, h := setupAuthTest(t)
	master := createTestKey(t, h, "", []string{"*"})

	rec := postJSON(t, h, "/api/auth/keys", master.RawKey, CreateKeyRequest{
		Scopes:      []string{"feeds:read", "tarpits:write"},
		Description: "bad scopes",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown scope status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	scoped := createTestKey(t, h, master.RawKey, []string{"stats:read", "feeds:read"})
	if !reflect.DeepEqual(scoped.Scopes, []string{"feeds:read", "stats:read"}) {
		t.Errorf("scoped key scopes = %v, want sorted [feeds:read stats:read]", scoped.Scopes)
	}

	// A non-manager key cannot mint further keys.
	rec = postJSON(t, h, "/api/auth/keys", scoped.RawKey, CreateKeyRequest{
		Scopes:      []string{"stats:read"},
		Description: "escalation attempt",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-manager create status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestDeleteKey(t *testing.T) {
	_, h := setupAuthTest(t)
	master := createTestKey(t, h, "", []string{"*"})
	extra := createTestKey(t, h, master.RawKey, []string{"stats:read"})

	doDelete := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/auth/keys/"+id, nil)
		req.Header.Set("tw-auth", master.RawKey)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := doDelete("1"); rec.Code != http.StatusBadRequest {
		t.Errorf("delete master key status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := doDelete("999"); rec.Code != http.StatusNotFound {
		t.Errorf("delete missing key status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := doDelete(strconv.Itoa(extra.ID)); rec.Code != http.StatusNoContent {
		t.Errorf("delete extra key status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestScopeCatalogEndpoint(t *testing.T) {
	_, h := setupAuthTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/scopes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var catalog map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&catalog); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	for _, scope := range []string{"*", "feeds:write", "templates:read", "auth:manage"} {
		if _, ok := catalog[scope]; !ok {
			t.Errorf("catalog is missing scope %q", scope)
		}
	}
}

func TestHasScope(t *testing.T) {
	perms := &Permissions{ScopeSet: map[string]struct{}{"feeds:read": {}}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), contextKeyPermissions, perms))

	if !hasScope(req, "feeds:read") {
		t.Error("granted scope was not recognized")
	}
	if hasScope(req, "feeds:write") {
		t.Error("ungranted scope was recognized")
	}
	if hasScope(httptest.NewRequest(http.MethodGet, "/", nil), "feeds:read") {
		t.Error("request without permissions should have no scopes")
	}
}
