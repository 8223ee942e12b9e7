package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Scheme はAuthorizationヘッダーの形式を表す。
// デプロイ先のアップストリームが期待する形式に合わせて設定で選択する。
type Scheme string

const (
	// SchemeRaw はAPIキーをそのままAuthorizationヘッダーに設定する形式。
	SchemeRaw Scheme = "raw"
	// SchemeBearer は "Bearer <key>" 形式。
	SchemeBearer Scheme = "bearer"
)

// ErrEmptyKey はAPIキーが空の場合に返される。
var ErrEmptyKey = errors.New("APIキーが空です")

// ParseScheme は文字列をSchemeに変換する。大文字小文字は区別しない。
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeRaw:
		return SchemeRaw, nil
	case SchemeBearer:
		return SchemeBearer, nil
	default:
		return "", fmt.Errorf("未対応の認証方式: %q", s)
	}
}

// Credential はアウトバウンドリクエストに認証情報を注入する。
type Credential interface {
	// Inject はヘッダーに認証情報を設定する。
	Inject(h http.Header)
}

// rawKey はAPIキーをそのまま送る。
type rawKey string

// Inject implements Credential.
func (k rawKey) Inject(h http.Header) {
	h.Set("Authorization", string(k))
}

// bearerKey はAPIキーをBearerトークンとして送る。
type bearerKey string

// Inject implements Credential.
func (k bearerKey) Inject(h http.Header) {
	h.Set("Authorization", "Bearer "+string(k))
}

// NewCredential は認証方式に応じたCredentialを生成する。
func NewCredential(scheme Scheme, key string) (Credential, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	switch scheme {
	case SchemeRaw:
		return rawKey(key), nil
	case SchemeBearer:
		return bearerKey(key), nil
	default:
		return nil, fmt.Errorf("未対応の認証方式: %q", scheme)
	}
}
