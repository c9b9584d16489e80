package safelink

import (
	"io"
	"time"
)

// OptionTimeout はリンクの有効期間（秒）を表すオプションキー。
const OptionTimeout = "timeout"

// DefaultTimeout は OptionTimeout の既定値（秒）。
const DefaultTimeout int64 = 10

func defaultOptions() map[string]int64 {
	return map[string]int64{
		OptionTimeout: DefaultTimeout,
	}
}

// Option は New に渡す設定関数。
type Option func(*SafeLink) error

// WithSecretKey は秘密鍵を設定する。
func WithSecretKey(key string) Option {
	return func(l *SafeLink) error {
		return l.SetSecretKey(key)
	}
}

// WithTimeout はリンクの有効期間を秒で設定する。
func WithTimeout(seconds int64) Option {
	return func(l *SafeLink) error {
		return l.SetOption(OptionTimeout, seconds)
	}
}

// WithOptions はオプションマップをまとめて設定する。
func WithOptions(options map[string]int64) Option {
	return func(l *SafeLink) error {
		return l.SetOptions(options)
	}
}

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) Option {
	return func(l *SafeLink) error {
		if now == nil {
			return invalidArgument("clock must not be nil")
		}
		l.now = now
		return nil
	}
}

// WithRandom はIV生成に使う乱数源を差し替える。
func WithRandom(r io.Reader) Option {
	return func(l *SafeLink) error {
		if r == nil {
			return invalidArgument("random source must not be nil")
		}
		l.random = r
		return nil
	}
}

// SetOption は既知のオプションを設定する。未知のキーや正でない値はエラー。
func (l *SafeLink) SetOption(key string, value int64) error {
	if err := l.checkOption(key, value); err != nil {
		return err
	}
	l.options[key] = value
	return nil
}

// SetOptions はすべてのエントリを検査してから適用する。1つでも不正なら何も変更しない。
func (l *SafeLink) SetOptions(options map[string]int64) error {
	for key, value := range options {
		if err := l.checkOption(key, value); err != nil {
			return err
		}
	}
	for key, value := range options {
		l.options[key] = value
	}
	return nil
}

func (l *SafeLink) checkOption(key string, value int64) error {
	if _, ok := l.options[key]; !ok {
		return invalidArgument("invalid option: %s", key)
	}
	if value <= 0 {
		return invalidArgument("option %s must be positive, got %d", key, value)
	}
	return nil
}

// Option はオプションの現在値を返す。
func (l *SafeLink) Option(key string) (int64, bool) {
	v, ok := l.options[key]
	return v, ok
}
