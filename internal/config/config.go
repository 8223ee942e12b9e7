// Package config はリレーサーバーの設定を環境変数から読み込む。
//
// 設定は起動時に一度だけ構築され、以降は読み取り専用として各コンポーネントに渡される。
// ハンドラーが環境変数を直接参照することはない。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nao1215/payrelay/pkg/httpclient"
	"github.com/nao1215/payrelay/pkg/logging"
)

// Config はリレーサーバー全体の設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// AllowedOrigin はクロスオリジンリクエストを許可するフロントエンドのオリジン。
	AllowedOrigin string
	// Upstream は決済プロバイダの接続設定。
	Upstream Upstream
	// LogLevel はログの出力レベル。
	LogLevel slog.Level
	// LogFormat はログの出力形式。
	LogFormat logging.Format
	// TracingEnabled はOpenTelemetryのトレース送信を有効にするかどうか。
	TracingEnabled bool
	// ShutdownTimeout はグレースフルシャットダウンの待機時間。
	ShutdownTimeout time.Duration
}

// Upstream は決済プロバイダ（アップストリーム）の接続設定。
type Upstream struct {
	// BaseURL はアップストリームのベースURL。
	BaseURL string
	// APIKey はサーバー側で保持する秘密鍵。フロントエンドには露出しない。
	APIKey string
	// Timeout はアウトバウンドリクエストのタイムアウト。0は無制限。
	Timeout time.Duration
	// STKPush はSTK Pushエンドポイントの設定。
	STKPush Endpoint
	// Balance は残高照会エンドポイントの設定。
	Balance Endpoint
	// TransactionStatus は取引状態照会エンドポイントの設定。
	TransactionStatus Endpoint
	// STKPushVerbatim がtrueの場合、STK Pushのボディを加工せずに転送する。
	STKPushVerbatim bool
}

// Endpoint はアップストリームの個別エンドポイントの設定。
type Endpoint struct {
	// Path はベースURLからの相対パス。
	Path string
	// AuthScheme はAuthorizationヘッダーの形式。
	AuthScheme httpclient.Scheme
}

// 既定値。
const (
	defaultPort            = "5000"
	defaultAllowedOrigin   = "http://localhost:3000"
	defaultBaseURL         = "https://api.smartpay.co.ke/v1"
	defaultTimeout         = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultSTKPushPath     = "/initiatestk"
	defaultBalancePath     = "/initiatebalance"
	defaultStatusPath      = "/transactionstatus"
)

// ErrMissingAPIKey はAPIキーが設定されていない場合に返される。
var ErrMissingAPIKey = errors.New("SMARTPAY_API_KEY が設定されていません")

// lookupFunc は環境変数の参照関数。テストで差し替える。
type lookupFunc func(key string) (string, bool)

// Load はカレントディレクトリの.envファイル（存在する場合）と環境変数から設定を読み込む。
// 既に設定されている環境変数は.envファイルで上書きされない。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}
	return load(os.LookupEnv)
}

// load は指定された参照関数から設定を構築する。
func load(lookup lookupFunc) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Port:          env.stringOr("PORT", defaultPort),
		AllowedOrigin: env.stringOr("FRONTEND_URL", defaultAllowedOrigin),
	}

	upstream, err := loadUpstream(env)
	if err != nil {
		return nil, err
	}
	cfg.Upstream = upstream

	if cfg.LogLevel, err = logging.ParseLevel(env.stringOr("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat, err = logging.ParseFormat(env.stringOr("LOG_FORMAT", string(logging.FormatJSON))); err != nil {
		return nil, fmt.Errorf("LOG_FORMAT: %w", err)
	}
	if cfg.TracingEnabled, err = env.boolOr("TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = env.durationOr("SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadUpstream はアップストリームの設定を読み込む。
// 認証方式はエンドポイント個別の変数、SMARTPAY_AUTH_SCHEME、既定値の順で決まる。
func loadUpstream(env envReader) (Upstream, error) {
	u := Upstream{
		BaseURL: env.stringOr("SMARTPAY_BASE_URL", defaultBaseURL),
		APIKey:  env.stringOr("SMARTPAY_API_KEY", ""),
	}
	if u.APIKey == "" {
		return Upstream{}, ErrMissingAPIKey
	}
	if err := validateBaseURL(u.BaseURL); err != nil {
		return Upstream{}, err
	}

	var err error
	if u.Timeout, err = env.durationOr("SMARTPAY_TIMEOUT", defaultTimeout); err != nil {
		return Upstream{}, err
	}
	if u.STKPushVerbatim, err = env.boolOr("SMARTPAY_STKPUSH_VERBATIM", false); err != nil {
		return Upstream{}, err
	}

	// 既定ではSTK Pushのみキーをそのまま送り、他はBearer形式で送る
	stkScheme, otherScheme := httpclient.SchemeRaw, httpclient.SchemeBearer
	if v, ok := env.get("SMARTPAY_AUTH_SCHEME"); ok {
		s, err := httpclient.ParseScheme(v)
		if err != nil {
			return Upstream{}, fmt.Errorf("SMARTPAY_AUTH_SCHEME: %w", err)
		}
		stkScheme, otherScheme = s, s
	}

	if u.STKPush, err = env.endpoint("SMARTPAY_STKPUSH", defaultSTKPushPath, stkScheme); err != nil {
		return Upstream{}, err
	}
	if u.Balance, err = env.endpoint("SMARTPAY_BALANCE", defaultBalancePath, otherScheme); err != nil {
		return Upstream{}, err
	}
	if u.TransactionStatus, err = env.endpoint("SMARTPAY_STATUS", defaultStatusPath, otherScheme); err != nil {
		return Upstream{}, err
	}

	return u, nil
}

// validateBaseURL はベースURLが絶対URLであることを検証する。
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("SMARTPAY_BASE_URL が不正です: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SMARTPAY_BASE_URL は http(s) の絶対URLである必要があります: %q", raw)
	}
	return nil
}

// envReader は環境変数を型付きで読み出す。
type envReader struct {
	lookup lookupFunc
}

// get は空文字列を未設定として扱う。
func (e envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// stringOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func (e envReader) stringOr(key, defaultValue string) string {
	if v, ok := e.get(key); ok {
		return v
	}
	return defaultValue
}

func (e envReader) boolOr(key string, defaultValue bool) (bool, error) {
	v, ok := e.get(key)
	if !ok {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s が不正です: %q", key, v)
	}
	return b, nil
}

func (e envReader) durationOr(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := e.get(key)
	if !ok {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s が不正です: %q", key, v)
	}
	return d, nil
}

// endpoint は <prefix>_PATH と <prefix>_AUTH_SCHEME からエンドポイント設定を読み込む。
func (e envReader) endpoint(prefix, defaultPath string, defaultScheme httpclient.Scheme) (Endpoint, error) {
	ep := Endpoint{
		Path:       e.stringOr(prefix+"_PATH", defaultPath),
		AuthScheme: defaultScheme,
	}
	if v, ok := e.get(prefix + "_AUTH_SCHEME"); ok {
		s, err := httpclient.ParseScheme(v)
		if err != nil {
			return Endpoint{}, fmt.Errorf("%s_AUTH_SCHEME: %w", prefix, err)
		}
		ep.AuthScheme = s
	}
	return ep, nil
}
