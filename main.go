// Command partridge-board starts the Partridge board server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from built-in defaults, an optional YAML file (-settings), the
// environment (and a .env file), and finally any flags set explicitly.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/partridge-board/api"
	"github.com/wricardo/partridge-board/game/config"
	"github.com/wricardo/partridge-board/game/service"
	"github.com/wricardo/partridge-board/game/session"
	"github.com/wricardo/partridge-board/internal/logging"
	"github.com/wricardo/partridge-board/internal/settings"
	"github.com/wricardo/partridge-board/transport/mcp"
	"github.com/wricardo/partridge-board/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Partridge Board Server"
)

// Configuration flags. Values set explicitly override settings and env.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", "configs", "Directory containing board configurations")
	settingsFile = flag.String("settings", "", "YAML settings file (optional)")
	envFile      = flag.String("env-file", ".env", "Environment file (optional)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	logFormat    = flag.String("log-format", "text", "Log format: text or json")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                            # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090                 # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -settings server.yaml      # Load settings from YAML\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                  # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, resolves settings, initializes services, and starts the selected mode.
func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := resolveSettings(explicitFlags())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to resolve settings")
	}

	if err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Debug: *debug}); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logrus.WithFields(logrus.Fields{
		"version":    Version,
		"mode":       mode,
		"config_dir": cfg.Board.ConfigDir,
	}).Infof("Starting %s", AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boardService, err := initializeServices(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(cfg, boardService)

	case "server", "http":
		runHTTPServer(ctx, cfg, boardService)

	default:
		logrus.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// explicitFlags returns the names of flags set on the command line
func explicitFlags() map[string]bool {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// resolveSettings layers defaults, the settings file, the environment and the
// explicitly set flags.
func resolveSettings(explicit map[string]bool) (*settings.Settings, error) {
	cfg := settings.Default()
	if *settingsFile != "" {
		loaded, err := settings.Load(*settingsFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	dotenv, err := settings.ReadDotEnv(*envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(settings.Lookup(dotenv)); err != nil {
		return nil, err
	}

	if explicit["port"] {
		cfg.Server.Port = *port
	}
	if explicit["host"] {
		cfg.Server.Host = *host
	}
	if explicit["config-dir"] {
		cfg.Board.ConfigDir = *configDir
	}
	if explicit["log-format"] {
		cfg.Log.Format = *logFormat
	}
	if explicit["ngrok"] {
		cfg.Ngrok.Enabled = *ngrokEnabled
	}
	if explicit["ngrok-auth"] {
		cfg.Ngrok.AuthToken = *ngrokAuth
	}
	if explicit["ngrok-domain"] {
		cfg.Ngrok.Domain = *ngrokDomain
	}

	return cfg, cfg.Validate()
}

// initializeServices wires session/config managers and the board service.
// It also starts a background cleanup routine to prune stale sessions.
func initializeServices(ctx context.Context, cfg *settings.Settings) (service.BoardService, error) {
	configManager, err := config.NewManager(cfg.Board.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	sessionManager := session.NewManager()
	boardService := service.NewBoardService(sessionManager, configManager)

	go sessionManager.RunCleanup(ctx, cfg.Session.CleanupInterval, cfg.Session.TTL)

	return boardService, nil
}

// newHandler builds the combined router: REST API, WebSocket and /mcp
func newHandler(boardService service.BoardService, baseURL string) (http.Handler, *websocket.Hub) {
	hub := websocket.NewHub()
	hub.SetDispatcher(boardService)

	apiServer := api.NewServer(boardService, hub)
	apiServer.Router().Handle("/mcp", mcp.NewClient(baseURL).HTTPHandler())

	return apiServer, hub
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg *settings.Settings, boardService service.BoardService) {
	addr := cfg.Addr()
	handler, hub := newHandler(boardService, fmt.Sprintf("http://%s", addr))
	go hub.Run()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		logrus.WithFields(logrus.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	if cfg.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg.Ngrok, handler)
		}()
	}

	sig := <-stop
	logrus.WithField("signal", sig.String()).Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
	}

	wg.Wait()
	logrus.Info("Server stopped")
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx is done
func runNgrokTunnel(ctx context.Context, cfg settings.NgrokSettings, handler http.Handler) {
	if cfg.AuthToken == "" {
		logrus.Warn("Ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	logrus.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		logrus.WithField("domain", cfg.Domain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		logrus.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	logrus.WithFields(logrus.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("Ngrok tunnel established: %s", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logrus.WithError(err).Error("Ngrok server error")
	}
	logrus.Info("Ngrok tunnel closed")
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable,
// it starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(cfg *settings.Settings, boardService service.BoardService) {
	externalURL := fmt.Sprintf("http://%s", cfg.Addr())
	baseURL := externalURL

	logrus.WithField("url", externalURL).Info("Checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/healthz")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logrus.WithField("url", externalURL).Info("External API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			logrus.WithError(err).Fatal("Failed to get available port")
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		handler, hub := newHandler(boardService, baseURL)
		go hub.Run()

		httpServer := &http.Server{Handler: handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Error("Internal HTTP server error")
			}
		}()

		logrus.WithField("url", baseURL).Info("Started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	logrus.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		logrus.WithError(err).Fatal("MCP stdio server error")
	}
}
