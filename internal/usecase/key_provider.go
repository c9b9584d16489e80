package usecase

import (
	"context"
	"fmt"
	"sync"

	"safelink-service/internal/domain"
)

// KeyProvider はリンクの署名・検証に使う秘密鍵を返す。
type KeyProvider interface {
	SecretKey(ctx context.Context) (string, error)
}

// KMSClient はラップされた秘密鍵を復号するインターフェース。
type KMSClient interface {
	UnwrapSecret(ctx context.Context, wrapped string) (string, error)
}

// StaticKeyProvider は設定値の秘密鍵をそのまま返す。
type StaticKeyProvider struct {
	key string
}

func NewStaticKeyProvider(key string) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

func (p *StaticKeyProvider) SecretKey(ctx context.Context) (string, error) {
	if p.key == "" {
		return "", domain.ErrSecretKeyUnavailable
	}
	return p.key, nil
}

// KMSKeyProvider はCloud KMSでラップされた秘密鍵を初回のみ復号し、以降はキャッシュを返す。
// 復号に失敗した場合はキャッシュせず、次回呼び出しで再試行する。
type KMSKeyProvider struct {
	kmsClient KMSClient
	wrapped   string

	mu  sync.Mutex
	key string
}

func NewKMSKeyProvider(kmsClient KMSClient, wrapped string) *KMSKeyProvider {
	return &KMSKeyProvider{
		kmsClient: kmsClient,
		wrapped:   wrapped,
	}
}

func (p *KMSKeyProvider) SecretKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != "" {
		return p.key, nil
	}

	key, err := p.kmsClient.UnwrapSecret(ctx, p.wrapped)
	if err != nil {
		return "", fmt.Errorf("%w: unwrapping secret key: %v", domain.ErrSecretKeyUnavailable, err)
	}
	if key == "" {
		return "", domain.ErrSecretKeyUnavailable
	}
	p.key = key
	return key, nil
}
