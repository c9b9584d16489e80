// Package usecase はアプリケーションのユースケースを実装する。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"safelink-service/internal/domain"
	"safelink-service/pkg/safelink"
)

var tracer = otel.Tracer("safelink-service/internal/usecase")

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// LinkEventRecorder は監査イベントの永続化インターフェース。
type LinkEventRecorder interface {
	Create(ctx context.Context, event *domain.LinkEvent) error
	FindRecent(ctx context.Context, operation domain.LinkOperation, limit int) ([]*domain.LinkEvent, error)
}

// NoopRecorder はDATABASE_URL未設定時に使う、何も保存しないレコーダー。
type NoopRecorder struct{}

func (NoopRecorder) Create(ctx context.Context, event *domain.LinkEvent) error { return nil }

func (NoopRecorder) FindRecent(ctx context.Context, operation domain.LinkOperation, limit int) ([]*domain.LinkEvent, error) {
	return []*domain.LinkEvent{}, nil
}

// LinkService はリンクの署名・検証のビジネスロジックを提供する。
// SafeLink は呼び出しごとに生成し、インスタンスを共有しない。
type LinkService struct {
	keys     KeyProvider
	recorder LinkEventRecorder
	timeout  int64
	now      func() time.Time
}

// NewLinkService は新しいLinkServiceを生成する。timeout は有効期間（秒）。
func NewLinkService(keys KeyProvider, recorder LinkEventRecorder, timeout int64) *LinkService {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	if timeout <= 0 {
		timeout = safelink.DefaultTimeout
	}
	return &LinkService{
		keys:     keys,
		recorder: recorder,
		timeout:  timeout,
		now:      time.Now,
	}
}

// newLink は1回の操作に使うSafeLinkを生成する。
func (s *LinkService) newLink(ctx context.Context, now time.Time) (*safelink.SafeLink, error) {
	key, err := s.keys.SecretKey(ctx)
	if err != nil {
		return nil, err
	}

	link, err := safelink.New(
		safelink.WithSecretKey(key),
		safelink.WithTimeout(s.timeout),
		safelink.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		// 鍵長不足は設定不備であり、リクエストの問題ではない
		return nil, fmt.Errorf("%w: %v", domain.ErrSecretKeyUnavailable, err)
	}
	return link, nil
}

// SignLink はデータを署名し、s と i を付与したURLを返す。
func (s *LinkService) SignLink(ctx context.Context, baseURL string, data safelink.Value) (*domain.SignedLink, error) {
	ctx, span := tracer.Start(ctx, "LinkService.SignLink")
	defer span.End()

	now := s.now()
	event := &domain.LinkEvent{
		Operation: domain.LinkOperationSign,
		BaseURL:   truncate(baseURL, domain.MaxBaseURLLength),
	}

	if utf8.RuneCountInString(baseURL) > domain.MaxBaseURLLength {
		err := fmt.Errorf("%w: url exceeds %d characters", domain.ErrInvalidLinkRequest, domain.MaxBaseURLLength)
		s.finish(ctx, event, err)
		return nil, err
	}

	link, err := s.newLink(ctx, now)
	if err != nil {
		s.finish(ctx, event, err)
		return nil, err
	}

	signed, err := link.SignURL(baseURL, data)
	if err != nil {
		if errors.Is(err, safelink.ErrInvalidArgument) {
			err = fmt.Errorf("%w: %v", domain.ErrInvalidLinkRequest, err)
		} else {
			err = fmt.Errorf("signing link: %w", err)
		}
		s.finish(ctx, event, err)
		return nil, err
	}

	issuedAt := time.Unix(now.Unix(), 0).UTC()
	event.IssuedAt = &issuedAt
	s.finish(ctx, event, nil)

	return &domain.SignedLink{URL: signed, IssuedAt: issuedAt}, nil
}

// VerifyLink はクエリパラメータを検証し、データと署名時刻を返す。
// 検証失敗は理由を問わず domain.ErrLinkNotVerified を返し、理由はログとイベントにのみ残す。
func (s *LinkService) VerifyLink(ctx context.Context, params safelink.Params) (*safelink.Result, error) {
	ctx, span := tracer.Start(ctx, "LinkService.VerifyLink")
	defer span.End()

	event := &domain.LinkEvent{Operation: domain.LinkOperationVerify}

	link, err := s.newLink(ctx, s.now())
	if err != nil {
		s.finish(ctx, event, err)
		return nil, err
	}

	result, err := link.Verify(params)
	if err != nil {
		var verr *safelink.VerificationError
		if errors.As(err, &verr) {
			event.Reason = verr.Reason
			err = domain.ErrLinkNotVerified
		} else {
			err = fmt.Errorf("verifying link: %w", err)
		}
		s.finish(ctx, event, err)
		return nil, err
	}

	issuedAt := time.Unix(result.Timestamp, 0).UTC()
	event.IssuedAt = &issuedAt
	s.finish(ctx, event, nil)

	return result, nil
}

// ListEvents は直近の監査イベントを新しい順に返す。operation が空なら全操作。
func (s *LinkService) ListEvents(ctx context.Context, operation domain.LinkOperation, limit int) ([]*domain.LinkEvent, error) {
	switch operation {
	case "", domain.LinkOperationSign, domain.LinkOperationVerify:
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidLinkRequest, operation)
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := s.recorder.FindRecent(ctx, operation, limit)
	if err != nil {
		return nil, fmt.Errorf("finding events: %w", err)
	}
	return events, nil
}

// finish は結果をメトリクス・スパン・監査イベントに反映する。
// イベントの保存失敗は操作自体の結果を変えない。
func (s *LinkService) finish(ctx context.Context, event *domain.LinkEvent, opErr error) {
	span := trace.SpanFromContext(ctx)

	event.Result = domain.LinkResultSuccess
	if opErr != nil {
		event.Result = domain.LinkResultFailed
		if event.Reason == "" {
			event.Reason = failureReason(opErr)
		}
		event.Reason = truncate(event.Reason, domain.MaxReasonLength)
		span.RecordError(opErr)
		span.SetStatus(codes.Error, event.Reason)
	}
	span.SetAttributes(
		attribute.String("safelink.operation", string(event.Operation)),
		attribute.String("safelink.result", string(event.Result)),
	)

	observe(event.Operation, event.Result)

	if err := s.recorder.Create(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to record link event",
			"operation", string(event.Operation),
			"error", err,
		)
	}

	if opErr != nil {
		slog.WarnContext(ctx, "link operation failed",
			"operation", string(event.Operation),
			"reason", event.Reason,
			"error", opErr,
		)
	}
}

// failureReason はエラーを監査イベント用の短い理由に変換する。
func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidLinkRequest):
		return domain.ReasonInvalidRequest
	case errors.Is(err, domain.ErrSecretKeyUnavailable):
		return domain.ReasonSecretKeyUnavailable
	default:
		return domain.ReasonInternalError
	}
}

// truncate は s を先頭 n 文字に切り詰める。
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
