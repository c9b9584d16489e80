package safelink

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument は呼び出し側の誤用（短い秘密鍵、空データ、未知のオプション）を表す。
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEncryption は暗号プリミティブが失敗した場合のエラー。
	ErrEncryption = errors.New("encryption failed")

	// ErrVerification はリンクを信頼できない場合のエラー。
	ErrVerification = errors.New("verification failed")

	// ErrDecode はペイロードを復元できない場合のエラー。
	ErrDecode = errors.New("payload decode failed")
)

// 検証失敗の理由。
const (
	ReasonInvalidIV  = "invalid IV length"
	ReasonDecryption = "decryption failed"
	ReasonDecode     = "payload could not be decoded"
	ReasonExpired    = "link expired"
)

// VerificationError は検証失敗を表す。下位の原因はエラーチェーンに含めない。
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "verification failed: " + e.Reason
}

// Is は errors.Is(err, ErrVerification) を成立させる。
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerification
}

func verificationError(reason string) error {
	return &VerificationError{Reason: reason}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
