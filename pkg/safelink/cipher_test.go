package safelink

import (
	"bytes"
	"errors"
	"testing"
)

func testKeys(t *testing.T) []byte {
	t.Helper()

	keys, err := deriveKeys([]byte(testKey))
	if err != nil {
		t.Fatalf("deriveKeys failed: %v", err)
	}
	return keys
}

func TestDeriveKeys(t *testing.T) {
	a, err := deriveKeys([]byte(testKey))
	if err != nil {
		t.Fatalf("deriveKeys failed: %v", err)
	}
	if len(a) != derivedKeyLen {
		t.Errorf("expected %d bytes, got %d", derivedKeyLen, len(a))
	}

	b, err := deriveKeys([]byte(testKey))
	if err != nil {
		t.Fatalf("deriveKeys failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("expected the same key material for the same secret")
	}

	c, err := deriveKeys([]byte(testKey + testKey + testKey))
	if err != nil {
		t.Fatalf("deriveKeys failed: %v", err)
	}
	if bytes.Equal(a, c) {
		t.Error("expected different key material for a different secret")
	}

	if _, err := deriveKeys([]byte("short")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	keys := testKeys(t)
	iv := []byte("1234567890123456")

	for _, size := range []int{0, 1, 15, 16, 17, 64} {
		plaintext := bytes.Repeat([]byte{'x'}, size)

		ciphertext, err := encrypt(plaintext, keys, iv)
		if err != nil {
			t.Fatalf("size %d: encrypt failed: %v", size, err)
		}
		if (len(ciphertext)-tagSize)%16 != 0 {
			t.Errorf("size %d: ciphertext is not block aligned: %d bytes", size, len(ciphertext))
		}

		got, err := decrypt(ciphertext, keys, iv)
		if err != nil {
			t.Fatalf("size %d: decrypt failed: %v", size, err)
		}
		if !bytes.Equal(plaintext, got) {
			t.Errorf("size %d: expected %q, got %q", size, plaintext, got)
		}
	}
}

func TestEncrypt_InvalidInput(t *testing.T) {
	keys := testKeys(t)

	if _, err := encrypt([]byte("x"), keys[:32], []byte("1234567890123456")); !errors.Is(err, ErrEncryption) {
		t.Errorf("short keys: expected ErrEncryption, got %v", err)
	}
	if _, err := encrypt([]byte("x"), keys, []byte("1234")); !errors.Is(err, ErrEncryption) {
		t.Errorf("short iv: expected ErrEncryption, got %v", err)
	}
}

func TestDecrypt_Rejects(t *testing.T) {
	keys := testKeys(t)
	iv := []byte("1234567890123456")

	ciphertext, err := encrypt([]byte("deneme"), keys, iv)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	cases := map[string][]byte{
		"empty":      nil,
		"tag only":   ciphertext[len(ciphertext)-tagSize:],
		"misaligned": ciphertext[1:],
		"bad tag":    append(bytes.Clone(ciphertext[:len(ciphertext)-1]), ciphertext[len(ciphertext)-1]^0xff),
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decrypt(c, keys, iv); !errors.Is(err, ErrEncryption) {
				t.Errorf("expected ErrEncryption, got %v", err)
			}
		})
	}

	if _, err := decrypt(ciphertext, keys, []byte("6543210987654321")); !errors.Is(err, ErrEncryption) {
		t.Errorf("wrong iv: expected ErrEncryption, got %v", err)
	}
}

func TestUnpad(t *testing.T) {
	if _, err := unpad(append(bytes.Repeat([]byte{'x'}, 15), 0), 16); !errors.Is(err, ErrEncryption) {
		t.Errorf("zero padding: expected ErrEncryption, got %v", err)
	}
	if _, err := unpad(append(bytes.Repeat([]byte{'x'}, 14), 1, 2), 16); !errors.Is(err, ErrEncryption) {
		t.Errorf("inconsistent padding: expected ErrEncryption, got %v", err)
	}

	got, err := unpad(append(bytes.Repeat([]byte{'x'}, 14), 2, 2), 16)
	if err != nil {
		t.Fatalf("unpad failed: %v", err)
	}
	if len(got) != 14 {
		t.Errorf("expected 14 bytes, got %d", len(got))
	}
}
