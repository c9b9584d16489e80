package safelink

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

const (
	ivSize  = aes.BlockSize
	tagSize = sha256.Size
)

// encrypt はAES-256-CBC（PKCS#7パディング）で暗号化し、iv||暗号文 のHMAC-SHA256タグを末尾に付与する。
// key は deriveKeys の出力。
func encrypt(plaintext, key, iv []byte) ([]byte, error) {
	if err := checkCipherInput(key, iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key[:aesKeyLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded), len(padded)+tagSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return append(out, authTag(key[aesKeyLen:], iv, out)...), nil
}

// decrypt はタグを検証してから復号する。
func decrypt(ciphertext, key, iv []byte) ([]byte, error) {
	if err := checkCipherInput(key, iv); err != nil {
		return nil, err
	}

	n := len(ciphertext) - tagSize
	if n < aes.BlockSize || n%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext has invalid length %d", ErrEncryption, len(ciphertext))
	}

	body, tag := ciphertext[:n], ciphertext[n:]
	if !hmac.Equal(tag, authTag(key[aesKeyLen:], iv, body)) {
		return nil, fmt.Errorf("%w: authentication tag mismatch", ErrEncryption)
	}

	block, err := aes.NewCipher(key[:aesKeyLen])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	out := make([]byte, n)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	return unpad(out, aes.BlockSize)
}

func checkCipherInput(key, iv []byte) error {
	if len(key) != derivedKeyLen {
		return fmt.Errorf("%w: key must be %d bytes, got %d", ErrEncryption, derivedKeyLen, len(key))
	}
	if len(iv) != ivSize {
		return fmt.Errorf("%w: IV must be %d bytes, got %d", ErrEncryption, ivSize, len(iv))
	}
	return nil
}

func authTag(macKey, iv, body []byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(body)
	return mac.Sum(nil)
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("%w: invalid padding", ErrEncryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("%w: invalid padding", ErrEncryption)
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("%w: invalid padding", ErrEncryption)
		}
	}
	return b[:len(b)-n], nil
}
