// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"

	"safelink-service/internal/domain"
)

// WriteAuditLog はリンク操作の監査ログを出力する。
// ペイロードやパラメータ値は出力しない。
func WriteAuditLog(ctx context.Context, operation domain.LinkOperation, baseURL string, result domain.LinkResult) {
	attrs := []any{
		"operation", string(operation),
		"result", string(result),
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	}
	if baseURL != "" {
		attrs = append(attrs, "base_url", baseURL)
	}
	slog.InfoContext(ctx, "link operation completed", attrs...)
}
