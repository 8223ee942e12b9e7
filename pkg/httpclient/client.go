package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrInvalidJSON はアップストリームのレスポンスボディがJSONではない場合に返される。
var ErrInvalidJSON = errors.New("アップストリームのレスポンスがJSONではありません")

// Client は決済プロバイダ（アップストリーム）呼び出し用のHTTPクライアント。
// リトライは行わない。失敗は呼び出し元に即座に返す。
type Client struct {
	// resty は内部で使用するrestyクライアント。
	resty *resty.Client
	// baseURL はアップストリームのベースURL。
	baseURL string
}

// Response はアップストリームからのレスポンス。
// ステータスコードとボディは加工せずに呼び出し元へ中継する。
type Response struct {
	// StatusCode はアップストリームが返したHTTPステータスコード。
	StatusCode int
	// Body はアップストリームが返したJSONボディ。
	Body json.RawMessage
}

// New は新しいアップストリーム用HTTPクライアントを生成する。
// timeoutが0の場合はタイムアウトを設定しない。
func New(baseURL string, timeout time.Duration) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetTransport(otelhttp.NewTransport(http.DefaultTransport))

	return &Client{
		resty:   r,
		baseURL: baseURL,
	}
}

// BaseURL は接続先のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// 2xx以外のステータスもエラーとはせず、そのままResponseとして返す。
// 通信エラーとJSONとして解釈できないレスポンスのみエラーになる。
func (c *Client) PostJSON(ctx context.Context, path string, cred Credential, body any) (*Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
	}

	req := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(jsonBody)
	if cred != nil {
		cred.Inject(req.Header)
	}

	resp, err := req.Post(path)
	if err != nil {
		return nil, fmt.Errorf("アップストリームへのリクエスト送信に失敗: %w", err)
	}

	respBody := resp.Body()
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%w: status=%d", ErrInvalidJSON, resp.StatusCode())
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       json.RawMessage(respBody),
	}, nil
}
