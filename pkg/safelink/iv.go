package safelink

import (
	"bytes"
	"fmt"
	"io"
)

// EnsureIV は設定済みのIVを返す。未設定なら乱数で生成して保持する。
func (l *SafeLink) EnsureIV() ([]byte, error) {
	if l.iv == nil {
		iv := make([]byte, ivSize)
		if _, err := io.ReadFull(l.random, iv); err != nil {
			return nil, fmt.Errorf("%w: generating IV: %v", ErrEncryption, err)
		}
		l.iv = iv
	}
	return bytes.Clone(l.iv), nil
}

// SetIV はIVを設定する。16バイト以外は ErrVerification。
func (l *SafeLink) SetIV(iv []byte) error {
	if len(iv) != ivSize {
		return verificationError(ReasonInvalidIV)
	}
	l.iv = bytes.Clone(iv)
	return nil
}

// IV は設定済みのIVを返す。未設定ならnil。
func (l *SafeLink) IV() []byte {
	return bytes.Clone(l.iv)
}
