package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oldiegoldie/chatrelay/config"
	"github.com/oldiegoldie/chatrelay/handshake"
	"github.com/oldiegoldie/chatrelay/health"
	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/internal/transport/ws"
	"github.com/oldiegoldie/chatrelay/registry"
	"github.com/oldiegoldie/chatrelay/relay"
)

var (
	flagHost        string
	flagPort        int
	flagInviteToken bool
	flagBind        []string
	flagTokenCount  int
	flagNoExpiry    bool
	flagTLSCert     string
	flagTLSKey      string
	flagMetricsAddr string
	flagHealthAddr  string
	flagConfigDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat relay server",
	Example: `  chat-server serve --host local --port 8765
  chat-server serve --host public --invite-token --bind alice --token-count 2`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagHost, "host", "", `listen mode: "local" or "public" (required)`)
	serveCmd.Flags().IntVar(&flagPort, "port", 8765, "listen port")
	serveCmd.Flags().BoolVar(&flagInviteToken, "invite-token", false, "require an invite token to register")
	serveCmd.Flags().StringSliceVar(&flagBind, "bind", nil, "usernames to pre-create bound invite tokens for (requires --invite-token)")
	serveCmd.Flags().IntVar(&flagTokenCount, "token-count", 0, "total invite tokens to create; must be >= len(bind) when both are given")
	serveCmd.Flags().BoolVar(&flagNoExpiry, "no-expiry", false, "disable invite token TTL")
	serveCmd.Flags().StringVar(&flagTLSCert, "tls-cert", "", "TLS certificate file (enables HTTPS/WSS)")
	serveCmd.Flags().StringVar(&flagTLSKey, "tls-key", "", "TLS key file (enables HTTPS/WSS)")
	serveCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "address to serve /metrics on, empty disables it")
	serveCmd.Flags().StringVar(&flagHealthAddr, "health-addr", "", "address to serve /healthz on, empty disables it")
	serveCmd.Flags().StringVar(&flagConfigDir, "config-dir", "config", "directory to search for an optional YAML config file")

	_ = serveCmd.MarkFlagRequired("host")
}

func runServe(cmd *cobra.Command, args []string) error {
	if flagHost != "local" && flagHost != "public" {
		return fmt.Errorf(`--host must be "local" or "public", got %q`, flagHost)
	}
	if flagInviteToken && flagTokenCount < len(flagBind) {
		return fmt.Errorf("--token-count (%d) must be >= len(--bind) (%d)", flagTokenCount, len(flagBind))
	}
	if len(flagBind) > 0 && !flagInviteToken {
		return fmt.Errorf("--bind requires --invite-token")
	}

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: flagConfigDir})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	log := logger.NewDefaultLogger()
	log.SetPrettyPrint(cfg.Logging.Format != "json")
	logger.SetDefaultLogger(log)

	hub := registry.NewHub(registry.DefaultConfig())
	defer hub.Close()
	hub.SetLogger(log)
	hub.OnValidationTimeout(func(requester, responder string) {
		handshake.DisconnectPair(hub, requester, responder, "timeout")
	})

	if flagInviteToken {
		seedInvites(hub, flagBind, flagTokenCount, flagNoExpiry)
	}

	srv := relay.NewServer(hub)
	handler := ws.NewHandler()
	handler.OnConnect = srv.HandleConnection
	if flagInviteToken {
		handler.Authorize = func(r *http.Request) (*registry.Invite, bool) {
			token := ws.BearerToken(r)
			if token == "" {
				return nil, false
			}
			return hub.CheckInvite(token)
		}
	}

	if flagMetricsAddr != "" {
		go func() {
			if err := metrics.StartServer(flagMetricsAddr); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
	}

	if flagHealthAddr != "" {
		checker := health.NewHealthChecker(5 * time.Second)
		checker.SetLogger(log)
		checker.RegisterCheck("hub", health.HubHealthCheck(func(ctx context.Context) bool {
			return hub.Reachable()
		}))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/healthz", checker.Handler())
			if err := http.ListenAndServe(flagHealthAddr, mux); err != nil {
				log.Error("health server stopped", logger.Error(err))
			}
		}()
	}

	addr := listenAddr(cfg.Server.Host, cfg.Server.Port)
	log.Info("chat relay listening", logger.String("addr", addr), logger.Bool("invite_token_mode", flagInviteToken))

	if flagTLSCert != "" && flagTLSKey != "" {
		return http.ListenAndServeTLS(addr, flagTLSCert, flagTLSKey, handler)
	}
	return http.ListenAndServe(addr, handler)
}

func listenAddr(host string, port int) string {
	if host == "local" {
		return fmt.Sprintf("127.0.0.1:%d", port)
	}
	return fmt.Sprintf("0.0.0.0:%d", port)
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}
}
