package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nao1215/payrelay/internal/config"
	"github.com/nao1215/payrelay/pkg/httpclient"
	"github.com/nao1215/payrelay/pkg/logging"
	"github.com/nao1215/payrelay/pkg/middleware"
)

// serviceName はヘルスチェックとトレースで使うサービス名。
const serviceName = "payrelay"

// maxBodyBytes は受け付けるリクエストボディの最大サイズ。
const maxBodyBytes = 1 << 20

// upstreamFailureMessage は転送失敗時に返す固定メッセージ。
// 失敗の原因（タイムアウト、接続拒否、JSON解析失敗）はログにのみ出力する。
const upstreamFailureMessage = "決済プロバイダとの通信に失敗しました"

// Server はリレーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// logger は構造化ロガー。
	logger *slog.Logger
	// upstream は決済プロバイダへの通信クライアント。
	upstream *httpclient.Client
	// endpoints はルートごとの転送先。
	endpoints endpointConfig
	// stkPushVerbatim がtrueの場合、STK Pushのボディをそのまま転送する。
	stkPushVerbatim bool
	// shutdownTimeout はグレースフルシャットダウンの待機時間。
	shutdownTimeout time.Duration
}

// endpoint はアップストリームの転送先1件。
type endpoint struct {
	// name はログに出力するエンドポイント名。
	name string
	// path はベースURLからの相対パス。
	path string
	// credential はこのエンドポイントに付与する認証情報。
	credential httpclient.Credential
}

// endpointConfig はリレーの各ルートに対応する転送先。
type endpointConfig struct {
	STKPush           endpoint
	Balance           endpoint
	TransactionStatus endpoint
}

// NewServer は新しいリレーサーバーを生成する。
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	endpoints, err := newEndpointConfig(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("転送先の設定に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS([]string{cfg.AllowedOrigin}))

	s := &Server{
		router:          router,
		port:            cfg.Port,
		logger:          logger,
		upstream:        httpclient.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout),
		endpoints:       endpoints,
		stkPushVerbatim: cfg.Upstream.STKPushVerbatim,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	s.setupRoutes()

	return s, nil
}

// newEndpointConfig は設定から転送先と認証情報を組み立てる。
func newEndpointConfig(u config.Upstream) (endpointConfig, error) {
	build := func(name string, ep config.Endpoint) (endpoint, error) {
		cred, err := httpclient.NewCredential(ep.AuthScheme, u.APIKey)
		if err != nil {
			return endpoint{}, fmt.Errorf("%s: %w", name, err)
		}
		return endpoint{name: name, path: ep.Path, credential: cred}, nil
	}

	var (
		cfg endpointConfig
		err error
	)
	if cfg.STKPush, err = build("STK Push", u.STKPush); err != nil {
		return endpointConfig{}, err
	}
	if cfg.Balance, err = build("Balance", u.Balance); err != nil {
		return endpointConfig{}, err
	}
	if cfg.TransactionStatus, err = build("Transaction Status", u.TransactionStatus); err != nil {
		return endpointConfig{}, err
	}
	return cfg, nil
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           otelhttp.NewHandler(s.router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.InfoContext(ctx, "relay server started",
		slog.String("addr", srv.Addr),
		slog.String("upstream", s.upstream.BaseURL()),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(shutdownCtx, "relay server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はルーティングを設定する。
func (s *Server) setupRoutes() {
	// 決済プロバイダへの転送
	s.router.POST("/stkpush", s.handleSTKPush())
	s.router.POST("/balance", s.handleBalance())
	s.router.POST("/transactionstatus", s.handleTransactionStatus())

	// 決済プロバイダからのコールバック
	s.router.POST("/webhook", s.handleWebhook())

	// ヘルスチェック
	s.router.GET("/", s.handleHealth())
	s.router.GET("/health", s.handleHealth())
}

// handleSTKPush はSTK Push（支払い要求）を転送するハンドラを返す。
func (s *Server) handleSTKPush() gin.HandlerFunc {
	return func(c *gin.Context) {
		ep := s.endpoints.STKPush
		body, ok := s.readJSONBody(c, ep.name)
		if !ok {
			return
		}

		if s.stkPushVerbatim {
			s.forward(c, ep, body)
			return
		}

		var req stkPushRequest
		if !s.decode(c, ep.name, body, &req) {
			return
		}
		s.forward(c, ep, req)
	}
}

// handleBalance は残高照会を転送するハンドラを返す。
// account_referenceは呼び出し元の値に関わらず固定値で送る。
func (s *Server) handleBalance() gin.HandlerFunc {
	return func(c *gin.Context) {
		ep := s.endpoints.Balance
		body, ok := s.readJSONBody(c, ep.name)
		if !ok {
			return
		}

		var req balanceRequest
		if !s.decode(c, ep.name, body, &req) {
			return
		}
		s.forward(c, ep, upstreamBalanceRequest{
			Phone:            req.Phone,
			AccountReference: balanceAccountReference,
		})
	}
}

// handleTransactionStatus は取引状態照会を転送するハンドラを返す。
func (s *Server) handleTransactionStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ep := s.endpoints.TransactionStatus
		body, ok := s.readJSONBody(c, ep.name)
		if !ok {
			return
		}

		var req transactionStatusRequest
		if !s.decode(c, ep.name, body, &req) {
			return
		}
		s.forward(c, ep, req)
	}
}

// handleWebhook は決済プロバイダからのコールバックを受け付けるハンドラを返す。
// ボディの内容に関わらず常に200を返す。
func (s *Server) handleWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		attrs := []slog.Attr{
			slog.String("endpoint", "Webhook"),
			slog.String("request_id", middleware.GetRequestID(c)),
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			attrs = append(attrs, slog.Any("read_error", err))
		}
		body = bytes.TrimSpace(body)
		if json.Valid(body) {
			attrs = append(attrs, slog.Any("payload", logging.JSON(body)))
		} else {
			attrs = append(attrs, slog.String("raw_payload", string(body)))
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook callback received", attrs...)

		c.JSON(http.StatusOK, webhookAck{Message: "Webhook received"})
	}
}

// handleHealth はヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{Status: "ok", Service: serviceName})
	}
}

// readJSONBody はリクエストボディを読み込み、JSONオブジェクトであることを検証する。
// 空のボディは {} として扱う。失敗時はレスポンスを書き込みfalseを返す。
func (s *Server) readJSONBody(c *gin.Context, name string) (json.RawMessage, bool) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "リクエストボディが大きすぎます"})
			return nil, false
		}
		s.logger.WarnContext(ctx, "failed to read request body",
			slog.String("endpoint", name),
			slog.String("request_id", middleware.GetRequestID(c)),
			slog.Any("error", err),
		)
		c.JSON(http.StatusBadRequest, errorResponse{Error: "リクエストボディの読み込みに失敗しました"})
		return nil, false
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "リクエストボディがJSONではありません"})
		return nil, false
	}
	if body[0] != '{' {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "リクエストボディはJSONオブジェクトである必要があります"})
		return nil, false
	}

	s.logger.InfoContext(ctx, "relay request",
		slog.String("endpoint", name),
		slog.String("request_id", middleware.GetRequestID(c)),
		slog.Any("payload", logging.JSON(body)),
	)
	return body, true
}

// decode はJSONボディをリクエスト構造体に変換する。
// JSONオブジェクト以外の場合は400を返しfalseを返す。
func (s *Server) decode(c *gin.Context, name string, body json.RawMessage, v any) bool {
	if err := json.Unmarshal(body, v); err != nil {
		s.logger.WarnContext(c.Request.Context(), "invalid request body",
			slog.String("endpoint", name),
			slog.String("request_id", middleware.GetRequestID(c)),
			slog.Any("error", err),
		)
		c.JSON(http.StatusBadRequest, errorResponse{Error: "リクエストボディの形式が不正です"})
		return false
	}
	return true
}

// forward はペイロードをアップストリームに1回だけ転送し、結果をそのまま返す。
// 通信エラーやJSONとして解釈できないレスポンスの場合は500を返す。
func (s *Server) forward(c *gin.Context, ep endpoint, payload any) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	resp, err := s.upstream.PostJSON(ctx, ep.path, ep.credential, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "upstream call failed",
			slog.String("endpoint", ep.name),
			slog.String("path", ep.path),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: upstreamFailureMessage})
		return
	}

	s.logger.InfoContext(ctx, "upstream response",
		slog.String("endpoint", ep.name),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Any("body", logging.JSON(resp.Body)),
	)
	c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
}
