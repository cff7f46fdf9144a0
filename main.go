// Package main は多プロトコル認証・アカウンティングサーバー
// （RADIUS + DHCPv4）のエントリーポイント。
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/oyaguma3/radius-dispatcher-poc/internal/admin"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/client"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/config"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/forward"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/handler"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/pidfile"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/server"
	"github.com/oyaguma3/radius-dispatcher-poc/internal/store"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/logging"
	"github.com/oyaguma3/radius-dispatcher-poc/pkg/valkey"
)

// Version はビルド時に -ldflags で差し替える。
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// 1. 環境変数読み込み
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "radiusd: %v\n", err)
		return 1
	}

	// 2. CLIフラグ適用（環境変数より優先）
	showVersion, err := config.ParseFlags(cfg, os.Args[1:], os.Stderr)
	if err != nil {
		return 1
	}
	if showVersion {
		fmt.Printf("radiusd %s\n", Version)
		return 0
	}

	// 3. ロガー初期化（JSON形式、出力先はLogDirに従う）
	logW, closeLog, err := openLogSink(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "radiusd: %v\n", err)
		return 1
	}
	if closeLog != nil {
		defer closeLog()
	}
	level := slog.LevelInfo
	if cfg.DebugLevel > 0 {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(logW, &slog.HandlerOptions{
		Level: level,
	})).With("app", "radiusd")
	slog.SetDefault(logger)

	slog.Info("radiusd起動開始",
		"version", Version,
		"auth_port", cfg.AuthPort,
		"acct_port", cfg.AcctPort(),
		"dhcp_enabled", cfg.DHCPEnabled,
		"spawn_mode", cfg.SpawnMode,
		"conf_dir", cfg.ConfDir,
	)

	// 4. PIDファイル
	if err := pidfile.Write(cfg.PIDFile); err != nil {
		slog.Error("PIDファイル書き出し失敗", "error", err)
		return 1
	}
	defer pidfile.Remove(cfg.PIDFile)

	// 5. Valkeyクライアント初期化（構成されている場合のみ）
	var clientStore store.ClientStore
	var subscriberStore store.SubscriberStore
	if cfg.ValkeyEnabled() {
		opts := valkey.DefaultOptions().
			WithAddr(cfg.ValkeyAddr()).
			WithPassword(cfg.RedisPass).
			WithTimeouts(config.ValkeyConnectTimeout, config.ValkeyCommandTimeout, config.ValkeyCommandTimeout).
			WithPool(config.ValkeyPoolSize, 2)
		rc, err := valkey.NewClient(opts)
		if err != nil {
			slog.Error("Valkey接続失敗",
				"event_id", "VALKEY_CONN_ERR",
				"error", err,
			)
			return 1
		}
		defer rc.Close()
		clientStore = store.NewClientStore(rc)
		subscriberStore = store.NewSubscriberStore(rc)
		slog.Info("Valkey接続完了", "addr", cfg.ValkeyAddr())
	}

	// 6. クライアントレジストリ（静的ファイル → Valkey → フォールバック）
	resolver := client.NewNameResolver(!cfg.DisableDNS)
	buildRegistry := func() (client.Registry, error) {
		static, err := client.LoadClientsFile(cfg.ClientsFile())
		if err != nil {
			return nil, err
		}
		return client.NewChainRegistry(static, clientStore, cfg.RadiusSecret, resolver), nil
	}
	registry, err := buildRegistry()
	if err != nil {
		slog.Error("クライアント設定読み込み失敗", "error", err)
		return 1
	}

	// 7. アカウンティング書き出し先
	var writers []forward.Writer
	detail, err := forward.NewDetailWriter(cfg.AcctDir)
	if err != nil {
		slog.Error("アカウンティングディレクトリ初期化失敗", "error", err)
		return 1
	}
	writers = append(writers, detail)
	if cfg.AcctForwardURL != "" {
		writers = append(writers, forward.NewHTTPForwarder(cfg.AcctForwardURL))
		slog.Info("アカウンティングHTTP転送有効", "url", cfg.AcctForwardURL)
	}

	// 8. ハンドラ構成
	masker := logging.NewMasker(cfg.LogMaskPassword)
	handlers := server.Handlers{
		Accounting: handler.NewAccounting(writers),
	}
	if subscriberStore != nil {
		handlers.Authenticate = handler.NewAuthenticator(subscriberStore, registry, handler.AuthOptions{
			LogAuth:     cfg.LogAuth,
			LogAuthPass: cfg.LogAuthPass,
			Masker:      masker,
		})
	}

	// 9. ディスパッチャ
	srv := server.New(cfg, registry, handlers, nil)
	srv.ReloadRegistry = buildRegistry

	// 10. 管理APIサーバー（構成されている場合のみ）
	var adminSrv *admin.Server
	if cfg.AdminAddr != "" {
		adminSrv = admin.NewServer(cfg.AdminAddr, admin.NewRouter(srv.Stats(), Version))
		go func() {
			slog.Info("管理API起動", "addr", cfg.AdminAddr)
			if err := adminSrv.ListenAndServe(); err != nil {
				slog.Warn("管理APIエラー", "error", err)
			}
		}()
	}

	// 11. ディスパッチャ起動
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx)
	}()

	// 12. シグナル待機。SIGHUPは再読込予約、SIGTERMは正常終了。
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	exitCode := 0
	for {
		select {
		case err := <-errCh:
			if err != nil {
				slog.Error("サーバーエラー", "error", err)
				exitCode = 1
			}
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				slog.Info("SIGHUP受信、設定再読込を予約")
				srv.RequestReload()
				continue
			}
			slog.Info("シグナル受信、シャットダウン開始", "signal", sig.String())
			if sig != syscall.SIGTERM {
				exitCode = 1
			}
		}
		break
	}

	// 13. Graceful Shutdown
	cancel()
	if adminSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("管理APIシャットダウンエラー", "error", err)
		}
		shutdownCancel()
	}

	slog.Info("radiusd停止完了")
	return exitCode
}

// openLogSink はLogDir設定に応じたログ出力先を開く。
// "stdout"は標準出力、"syslog"はシステムロガー、それ以外はディレクトリ
// 内のradius.logへ追記する。
func openLogSink(cfg *config.Config) (io.Writer, func(), error) {
	switch cfg.LogDir {
	case "stdout", "":
		return os.Stdout, nil, nil
	case "syslog":
		w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, "radiusd")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open syslog: %w", err)
		}
		return w, func() { _ = w.Close() }, nil
	default:
		if err := os.MkdirAll(cfg.LogDir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		path := filepath.Join(cfg.LogDir, "radius.log")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, func() { _ = f.Close() }, nil
	}
}
