// Package main はAPIサーバーのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"safelink-service/config"
	"safelink-service/internal/handler"
	"safelink-service/internal/infra"
	"safelink-service/internal/repository"
	"safelink-service/internal/usecase"
)

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// トレーサー初期化（ロガー設定の前に実行）
	tp, err := infra.InitTracer(ctx, cfg)
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	if tp != nil {
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				slog.Error("failed to shutdown tracer", "error", err)
			}
		}()
	}

	// トレース情報付きロガーを設定
	infra.SetupLogger(os.Stdout, cfg)

	// 秘密鍵の取得元
	keys, closeKeys, err := newKeyProvider(ctx, cfg)
	if err != nil {
		slog.Error("failed to init key provider", "error", err)
		os.Exit(1)
	}
	defer closeKeys()

	// 起動時に鍵を解決しておき、設定不備を早期に検出する
	if _, err := keys.SecretKey(ctx); err != nil {
		slog.Error("secret key is not available", "error", err)
		os.Exit(1)
	}

	// 監査イベントの保存先
	var recorder usecase.LinkEventRecorder = usecase.NoopRecorder{}
	if cfg.DatabaseURL != "" {
		db, err := infra.NewDB(cfg)
		if err != nil {
			slog.Error("failed to init database", "error", err)
			os.Exit(1)
		}
		recorder = repository.NewLinkEventRepository(db)
	} else {
		slog.Warn("DATABASE_URL is not set; link events will not be persisted")
	}

	// DI
	service := usecase.NewLinkService(keys, recorder, cfg.LinkTimeout)
	h := handler.NewLinkHandler(service)
	router := handler.NewRouter(h, cfg)

	// サーバー起動
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.Port, "version", infra.Version, "timeout", cfg.LinkTimeout)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// newKeyProvider は SAFELINK_SECRET_KEY_CIPHERTEXT があればKMS、なければ平文の鍵を使う。
func newKeyProvider(ctx context.Context, cfg *config.Config) (usecase.KeyProvider, func(), error) {
	if cfg.SecretKeyCiphertext == "" {
		return usecase.NewStaticKeyProvider(cfg.SecretKey), func() {}, nil
	}

	kmsClient, err := infra.NewKMSClient(ctx, cfg.KMSKeyName)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := kmsClient.Close(); err != nil {
			slog.Error("failed to close KMS client", "error", err)
		}
	}
	return usecase.NewKMSKeyProvider(kmsClient, cfg.SecretKeyCiphertext), closeFn, nil
}
