// Package handler はHTTPハンドラを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"safelink-service/internal/domain"
	"safelink-service/internal/middleware"
	"safelink-service/internal/usecase"
	"safelink-service/pkg/httputil"
	"safelink-service/pkg/safelink"
)

const maxRequestBodyBytes = 64 << 10

var validate = newValidator()

// newValidator は safelink.Value を種類名に変換して検査するバリデータを生成する。
// null（未指定を含む）は空文字になり required で弾かれる。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if data, ok := field.Interface().(safelink.Value); ok && data.Kind() != safelink.KindNull {
			return data.Kind().String()
		}
		return ""
	}, safelink.Value{})
	return v
}

// LinkHandler はHTTPハンドラを提供する。
type LinkHandler struct {
	service *usecase.LinkService
}

// NewLinkHandler は新しいLinkHandlerを生成する。
func NewLinkHandler(service *usecase.LinkService) *LinkHandler {
	return &LinkHandler{service: service}
}

// CreateLinkRequest は署名リクエストの形式。
type CreateLinkRequest struct {
	URL  string         `json:"url" validate:"required,url,max=2048"`
	Data safelink.Value `json:"data" validate:"required"`
}

// LinkResponse は署名済みリンクのレスポンス形式。
type LinkResponse struct {
	URL      string `json:"url"`
	IssuedAt string `json:"issued_at"`
}

// VerifyResponse は検証結果のレスポンス形式。
type VerifyResponse struct {
	Data      safelink.Value `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// LinkEventResponse は監査イベントのレスポンス形式。
type LinkEventResponse struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	BaseURL   string `json:"base_url,omitempty"`
	Result    string `json:"result"`
	Reason    string `json:"reason,omitempty"`
	IssuedAt  string `json:"issued_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

// LinkEventListResponse は監査イベント一覧のレスポンス形式。
type LinkEventListResponse struct {
	Events []LinkEventResponse `json:"events"`
}

func decodeCreateLinkRequest(w http.ResponseWriter, r *http.Request) (*CreateLinkRequest, error) {
	var req CreateLinkRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	return &req, nil
}

// sign はリクエストを検証して署名する。失敗時はレスポンスを書き込み nil を返す。
func (h *LinkHandler) sign(w http.ResponseWriter, r *http.Request) *domain.SignedLink {
	req, err := decodeCreateLinkRequest(w, r)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url must be an absolute URL of at most 2048 characters and data is required")
		return nil
	}

	link, err := h.service.SignLink(r.Context(), req.URL, req.Data)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), domain.LinkOperationSign, req.URL, domain.LinkResultFailed)
		if errors.Is(err, domain.ErrInvalidLinkRequest) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "url or data is invalid")
			return nil
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return nil
	}

	middleware.WriteAuditLog(r.Context(), domain.LinkOperationSign, req.URL, domain.LinkResultSuccess)
	return link
}

// CreateLink は署名済みリンクを生成する。
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	link := h.sign(w, r)
	if link == nil {
		return
	}
	httputil.JSON(w, http.StatusCreated, LinkResponse{
		URL:      link.URL,
		IssuedAt: link.IssuedAt.Format(time.RFC3339),
	})
}

// RedirectLink は署名済みリンクへ 302 でリダイレクトする。
func (h *LinkHandler) RedirectLink(w http.ResponseWriter, r *http.Request) {
	link := h.sign(w, r)
	if link == nil {
		return
	}
	httputil.Redirect(w, link.URL)
}

// VerifyLink は RequireSignedLink が検証した結果を返す。
func (h *LinkHandler) VerifyLink(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.ResultFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusForbidden, "VERIFICATION_FAILED", domain.ErrLinkNotVerified.Error())
		return
	}
	httputil.JSON(w, http.StatusOK, VerifyResponse{
		Data:      res.Data,
		Timestamp: res.Timestamp,
	})
}

// ListEvents は直近の監査イベントを返す。
func (h *LinkHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			httputil.Error(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.service.ListEvents(r.Context(), domain.LinkOperation(q.Get("operation")), limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLinkRequest) {
			httputil.Error(w, http.StatusBadRequest, "INVALID_OPERATION", "operation must be sign or verify")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	response := LinkEventListResponse{
		Events: make([]LinkEventResponse, len(events)),
	}
	for i, e := range events {
		item := LinkEventResponse{
			ID:        e.ID,
			Operation: string(e.Operation),
			BaseURL:   e.BaseURL,
			Result:    string(e.Result),
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.IssuedAt != nil {
			item.IssuedAt = e.IssuedAt.Format(time.RFC3339)
		}
		response.Events[i] = item
	}
	httputil.JSON(w, http.StatusOK, response)
}

// Healthz はヘルスチェックに応答する。
func (h *LinkHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
