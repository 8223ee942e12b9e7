// 決済リレーサービスのエントリポイント。
// ブラウザのフロントエンドからのリクエストをAPIキー付きで決済プロバイダへ中継する。
// APIキーを保持する唯一のプロセスであり、フロントエンドとプロバイダの間の境界線となる。
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/payrelay/internal/config"
	"github.com/nao1215/payrelay/internal/relay"
	"github.com/nao1215/payrelay/internal/telemetry"
	"github.com/nao1215/payrelay/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("決済リレーサービスの起動に失敗", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.TracingEnabled, "payrelay")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Error("トレースの終了処理に失敗", slog.Any("error", err))
		}
	}()

	server, err := relay.NewServer(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("決済リレーサービスを起動します",
		slog.String("port", cfg.Port),
		slog.String("allowed_origin", cfg.AllowedOrigin),
	)
	return server.Run(ctx)
}
