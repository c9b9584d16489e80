package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"safelink-service/config"
	"safelink-service/internal/domain"
	"safelink-service/internal/usecase"
	"safelink-service/pkg/safelink"
)

const testSecretKey = "1234123412341234"

// mockRecorder はテスト用のモックレコーダー。
type mockRecorder struct {
	events     []*domain.LinkEvent
	findResult []*domain.LinkEvent
	findErr    error
}

func (m *mockRecorder) Create(ctx context.Context, event *domain.LinkEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockRecorder) FindRecent(ctx context.Context, operation domain.LinkOperation, limit int) ([]*domain.LinkEvent, error) {
	return m.findResult, m.findErr
}

func setupRouter(rec *mockRecorder) http.Handler {
	service := usecase.NewLinkService(usecase.NewStaticKeyProvider(testSecretKey), rec, 10)
	return NewRouter(NewLinkHandler(service), &config.Config{})
}

func createLink(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateLink_Success(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	rec := createLink(t, router, `{"url":"https://example.org/download?file=a","data":{"sicilno":7152}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LinkResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	u, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}
	q := u.Query()
	if q.Get("file") != "a" || q.Get("s") == "" || q.Get("i") == "" {
		t.Errorf("unexpected query: %s", u.RawQuery)
	}
}

func TestCreateLink_InvalidRequest(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	tests := map[string]string{
		"not json":      `{`,
		"relative url":  `{"url":"/path","data":1}`,
		"missing url":   `{"data":1}`,
		"empty data":    `{"url":"https://example.org","data":{}}`,
		"missing data":  `{"url":"https://example.org"}`,
		"null data":     `{"url":"https://example.org","data":null}`,
		"unknown field": `{"url":"https://example.org","data":1,"extra":true}`,
		"too long url":  `{"url":"https://example.org/` + strings.Repeat("a", 2048) + `","data":1}`,
		"too deep data": `{"url":"https://example.org","data":` + strings.Repeat("[", 32) + "1" + strings.Repeat("]", 32) + `}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := createLink(t, router, body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("want status 400, got %d", rec.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("invalid response: %v", err)
			}
			if resp["code"] != "INVALID_REQUEST" {
				t.Errorf("want code INVALID_REQUEST, got %q", resp["code"])
			}
		})
	}
}

func TestCreateLink_DeepDataAtLimit(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	rec := createLink(t, router, `{"url":"https://example.org","data":`+strings.Repeat("[", 31)+"1"+strings.Repeat("]", 31)+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("want status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp LinkResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	u, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("invalid url: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/links/verify?"+u.RawQuery, nil)
	verify := httptest.NewRecorder()
	router.ServeHTTP(verify, req)
	if verify.Code != http.StatusOK {
		t.Errorf("want status 200, got %d: %s", verify.Code, verify.Body.String())
	}
}

func TestCreateLinkRequest_Validation(t *testing.T) {
	tests := map[string]struct {
		req     CreateLinkRequest
		wantErr bool
	}{
		"missing data": {CreateLinkRequest{URL: "https://example.org"}, true},
		"null data":    {CreateLinkRequest{URL: "https://example.org", Data: safelink.Null()}, true},
		"false":        {CreateLinkRequest{URL: "https://example.org", Data: safelink.Bool(false)}, false},
		"zero":         {CreateLinkRequest{URL: "https://example.org", Data: safelink.Int(0)}, false},
		"map":          {CreateLinkRequest{URL: "https://example.org", Data: safelink.Map(map[string]safelink.Value{"a": safelink.Int(1)})}, false},
		"url at limit": {CreateLinkRequest{URL: "https://example.org/" + strings.Repeat("a", 2048-20), Data: safelink.Int(1)}, false},
		"url too long": {CreateLinkRequest{URL: "https://example.org/" + strings.Repeat("a", 2048-19), Data: safelink.Int(1)}, true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := validate.Struct(tt.req)
			if tt.wantErr && err == nil {
				t.Error("want validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestCreateLink_MissingDataDoesNotReachService(t *testing.T) {
	recorder := &mockRecorder{}
	router := setupRouter(recorder)

	rec := createLink(t, router, `{"url":"https://example.org"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want status 400, got %d", rec.Code)
	}
	if len(recorder.events) != 0 {
		t.Errorf("want request rejected before signing, got %d events", len(recorder.events))
	}
}

func TestRedirectLink(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	req := httptest.NewRequest(http.MethodPost, "/v1/links/redirect", strings.NewReader(`{"url":"https://example.org","data":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("want status 302, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://example.org?s=") {
		t.Errorf("unexpected location: %s", location)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("want empty body, got %q", rec.Body.String())
	}
}

func TestVerifyLink_RoundTrip(t *testing.T) {
	recorder := &mockRecorder{}
	router := setupRouter(recorder)

	created := createLink(t, router, `{"url":"https://example.org","data":{"sicilno":7152}}`)
	var link LinkResponse
	if err := json.NewDecoder(created.Body).Decode(&link); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	u, _ := url.Parse(link.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/links/verify?"+u.RawQuery, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data      map[string]any `json:"data"`
		Timestamp int64          `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Data["sicilno"] != float64(7152) {
		t.Errorf("want sicilno 7152, got %v", resp.Data["sicilno"])
	}
	if d := time.Now().Unix() - resp.Timestamp; d < 0 || d > 5 {
		t.Errorf("unexpected timestamp %d", resp.Timestamp)
	}
	if len(recorder.events) != 2 {
		t.Errorf("want 2 events, got %d", len(recorder.events))
	}
}

func TestVerifyLink_Rejected(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	for _, query := range []string{"", "s=AAAA&i=AAAAAAAAAAAAAAAAAAAAAA", "s=AAAA&i=short"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/links/verify?"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%q: want status 403, got %d", query, rec.Code)
			continue
		}
		var resp map[string]string
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp["code"] != "VERIFICATION_FAILED" || resp["message"] != "link could not be verified" {
			t.Errorf("%q: unexpected body %v", query, resp)
		}
	}
}

func TestListEvents(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router := setupRouter(&mockRecorder{findResult: []*domain.LinkEvent{
		{ID: "e1", Operation: domain.LinkOperationSign, BaseURL: "https://example.org", Result: domain.LinkResultSuccess, IssuedAt: &issued, CreatedAt: issued},
	}})

	req := httptest.NewRequest(http.MethodGet, "/v1/links/events?operation=sign&limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}
	var resp LinkEventListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].ID != "e1" || resp.Events[0].IssuedAt != "2026-01-01T00:00:00Z" {
		t.Errorf("unexpected events: %+v", resp.Events)
	}
}

func TestListEvents_InvalidParams(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	for _, query := range []string{"limit=0", "limit=abc", "operation=delete"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/links/events?"+query, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%q: want status 400, got %d", query, rec.Code)
		}
	}
}

func TestListEvents_RepositoryError(t *testing.T) {
	router := setupRouter(&mockRecorder{findErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/v1/links/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("want status 500, got %d", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	router := setupRouter(&mockRecorder{})

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: want status 200, got %d", path, rec.Code)
		}
	}
}
