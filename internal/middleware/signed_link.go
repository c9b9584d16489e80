package middleware

import (
	"context"
	"errors"
	"net/http"

	"safelink-service/internal/domain"
	"safelink-service/pkg/httputil"
	"safelink-service/pkg/safelink"
)

// Verifier はクエリパラメータを検証する。
type Verifier interface {
	VerifyLink(ctx context.Context, params safelink.Params) (*safelink.Result, error)
}

type signedLinkContextKey struct{}

// ResultFromContext は RequireSignedLink が検証した結果を取り出す。
func ResultFromContext(ctx context.Context) (*safelink.Result, bool) {
	res, ok := ctx.Value(signedLinkContextKey{}).(*safelink.Result)
	return res, ok
}

// RequireSignedLink はリクエストURLの s と i を検証し、成功時のみ次のハンドラを呼ぶ。
func RequireSignedLink(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := v.VerifyLink(r.Context(), safelink.ParamsFromQuery(r.URL.Query()))
			if err != nil {
				WriteAuditLog(r.Context(), domain.LinkOperationVerify, "", domain.LinkResultFailed)
				if errors.Is(err, domain.ErrLinkNotVerified) {
					httputil.Error(w, http.StatusForbidden, "VERIFICATION_FAILED", domain.ErrLinkNotVerified.Error())
					return
				}
				httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				return
			}

			WriteAuditLog(r.Context(), domain.LinkOperationVerify, "", domain.LinkResultSuccess)
			ctx := context.WithValue(r.Context(), signedLinkContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
