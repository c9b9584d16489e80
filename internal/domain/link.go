// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// LinkOperation はリンクに対する操作の種類を表す。
type LinkOperation string

const (
	// LinkOperationSign は署名を表す。
	LinkOperationSign LinkOperation = "sign"
	// LinkOperationVerify は検証を表す。
	LinkOperationVerify LinkOperation = "verify"
)

// LinkResult は操作結果を表す。
type LinkResult string

const (
	LinkResultSuccess LinkResult = "success"
	LinkResultFailed  LinkResult = "failed"
)

// 監査イベントの列長（文字数）。migrations/001_create_link_events.sql と一致させる。
const (
	MaxBaseURLLength = 2048
	MaxReasonLength  = 255
)

// 署名失敗時に監査イベントへ残す理由。エラー文言はURLなどの入力を含むため保存しない。
const (
	ReasonInvalidRequest       = "invalid request"
	ReasonSecretKeyUnavailable = "secret key unavailable"
	ReasonInternalError        = "internal error"
)

// LinkEvent は署名・検証の監査イベントを表す。
// ペイロード、IV、暗号文は保持しない。
type LinkEvent struct {
	ID        string
	Operation LinkOperation
	BaseURL   string
	Result    LinkResult
	Reason    string
	IssuedAt  *time.Time // 署名時刻（検証に成功した場合、または署名時）
	CreatedAt time.Time
}

// SignedLink は署名済みリンクを表す。
type SignedLink struct {
	URL      string
	IssuedAt time.Time
}
