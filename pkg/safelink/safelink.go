package safelink

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"
	"unicode/utf8"
)

// クエリパラメータ名。
const (
	ParamPayload = "s"
	ParamIV      = "i"
)

var paramEncoding = base64.RawURLEncoding.Strict()

// Params は検証に渡すクエリパラメータ。
type Params map[string]string

// ParamsFromQuery はURLクエリから s と i を取り出す。
func ParamsFromQuery(q url.Values) Params {
	p := Params{}
	for _, key := range []string{ParamPayload, ParamIV} {
		if q.Has(key) {
			p[key] = q.Get(key)
		}
	}
	return p
}

// Result は検証済みリンクの内容。
type Result struct {
	Data      Value
	Timestamp int64
}

// SafeLink は秘密鍵・IV・オプションを保持し、1つのリンクの署名または検証を行う。
type SafeLink struct {
	secretKey string
	keys      []byte
	iv        []byte
	options   map[string]int64
	now       func() time.Time
	random    io.Reader
}

// New はSafeLinkを生成する。秘密鍵は WithSecretKey か SetSecretKey で設定する。
func New(opts ...Option) (*SafeLink, error) {
	l := &SafeLink{
		options: defaultOptions(),
		now:     time.Now,
		random:  rand.Reader,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// SetSecretKey は秘密鍵を設定する。16文字未満は ErrInvalidArgument。
func (l *SafeLink) SetSecretKey(key string) error {
	if utf8.RuneCountInString(key) < minSecretKeyLen {
		return invalidArgument("the secret key must be %d characters at least", minSecretKeyLen)
	}

	keys, err := deriveKeys([]byte(key))
	if err != nil {
		return err
	}
	l.secretKey = key
	l.keys = keys
	return nil
}

func (l *SafeLink) SecretKey() string {
	return l.secretKey
}

// Seal はデータとタイムスタンプを暗号化し、s パラメータの値を返す。IVは EnsureIV で確保する。
func (l *SafeLink) Seal(data Value, timestamp int64) (string, error) {
	if l.keys == nil {
		return "", invalidArgument("secret key is not set")
	}

	plaintext, err := Encode(data, timestamp)
	if errors.Is(err, ErrInvalidArgument) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}

	iv, err := l.EnsureIV()
	if err != nil {
		return "", err
	}

	ciphertext, err := encrypt(plaintext, l.keys, iv)
	if err != nil {
		return "", err
	}
	return paramEncoding.EncodeToString(ciphertext), nil
}

// Open は Seal の逆変換を行う。エラーは正規化しない（Verify が正規化する）。
func (l *SafeLink) Open(payload, encodedIV string) (Value, int64, error) {
	if l.keys == nil {
		return Value{}, 0, invalidArgument("secret key is not set")
	}

	iv, err := paramEncoding.DecodeString(encodedIV)
	if err != nil {
		return Value{}, 0, verificationError(ReasonInvalidIV)
	}
	if err := l.SetIV(iv); err != nil {
		return Value{}, 0, err
	}

	ciphertext, err := paramEncoding.DecodeString(payload)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: payload is not base64url: %v", ErrEncryption, err)
	}

	plaintext, err := decrypt(ciphertext, l.keys, iv)
	if err != nil {
		return Value{}, 0, err
	}
	return Decode(plaintext)
}

// SignURL はデータを署名し、s と i を付与したURLを返す。
func (l *SafeLink) SignURL(baseURL string, data Value) (string, error) {
	if data.IsEmpty() {
		return "", invalidArgument("data cannot be empty")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", invalidArgument("invalid url %q: %v", baseURL, err)
	}

	payload, err := l.Seal(data, l.now().Unix())
	if err != nil {
		return "", err
	}

	query := ParamPayload + "=" + url.QueryEscape(payload) + "&" + ParamIV + "=" + url.QueryEscape(paramEncoding.EncodeToString(l.iv))
	if u.RawQuery != "" {
		existing := u.Query()
		existing.Del(ParamPayload)
		existing.Del(ParamIV)
		if rest := existing.Encode(); rest != "" {
			query = rest + "&" + query
		}
	}
	u.RawQuery = query
	u.ForceQuery = false

	return u.String(), nil
}

// Verify はパラメータを検証し、データと署名時刻を返す。
// 失敗理由はすべて *VerificationError（ErrVerification）に正規化される。
func (l *SafeLink) Verify(params Params) (*Result, error) {
	if l.keys == nil {
		return nil, invalidArgument("secret key is not set")
	}

	data, ts, err := l.Open(params[ParamPayload], params[ParamIV])
	if err != nil {
		return nil, normalize(err)
	}

	// 未来のタイムスタンプ（負の経過時間）は許容する
	if ts < l.now().Unix()-l.options[OptionTimeout] {
		return nil, verificationError(ReasonExpired)
	}

	return &Result{Data: data, Timestamp: ts}, nil
}

func normalize(err error) error {
	var verr *VerificationError
	switch {
	case errors.As(err, &verr):
		return &VerificationError{Reason: verr.Reason}
	case errors.Is(err, ErrDecode):
		return verificationError(ReasonDecode)
	default:
		return verificationError(ReasonDecryption)
	}
}
