package safelink

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretKeyLen = 16
	aesKeyLen       = 32 // AES-256
	macKeyLen       = 32 // HMAC-SHA256
	derivedKeyLen   = aesKeyLen + macKeyLen

	// keyInfo はHKDFのinfo。変更すると既存リンクは検証できなくなる。
	keyInfo = "safelink aes-256-cbc+hmac-sha256"
)

// deriveKeys は秘密鍵からAES鍵とMAC鍵を連結した64バイトを導出する。
// 秘密鍵は長さに関わらずそのまま暗号に渡さない。
func deriveKeys(secret []byte) ([]byte, error) {
	if len(secret) < minSecretKeyLen {
		return nil, invalidArgument("the secret key must be %d characters at least", minSecretKeyLen)
	}

	key := make([]byte, derivedKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("%w: deriving keys: %v", ErrEncryption, err)
	}
	return key, nil
}
