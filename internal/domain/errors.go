package domain

import "errors"

var (
	// ErrInvalidLinkRequest は署名リクエストのURLまたはデータが不正な場合のエラー。
	ErrInvalidLinkRequest = errors.New("invalid link request")

	// ErrLinkNotVerified はリンクの検証に失敗した場合のエラー。理由は区別しない。
	ErrLinkNotVerified = errors.New("link could not be verified")

	// ErrSecretKeyUnavailable は秘密鍵を取得できない場合のエラー。
	ErrSecretKeyUnavailable = errors.New("secret key unavailable")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
