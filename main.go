// Command chainreaction starts the Chain Reaction game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags (or the matching environment variables, optionally from a .env file)
// control host/port, config and session storage, Redis, logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/chainreaction/api"
	"github.com/wricardo/mcp-training/chainreaction/game/config"
	"github.com/wricardo/mcp-training/chainreaction/game/service"
	"github.com/wricardo/mcp-training/chainreaction/game/session"
	"github.com/wricardo/mcp-training/chainreaction/transport/mcp"
	"github.com/wricardo/mcp-training/chainreaction/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Chain Reaction Game Server"
)

// options holds everything the flags configure
type options struct {
	host        string
	port        int
	configDir   string
	sessionsDir string

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string
	sessionTTL    time.Duration

	allowedOrigins []string
	externalAPI    string

	ngrokEnabled bool
	ngrokAuth    string
	ngrokDomain  string

	debug     bool
	logFormat string
}

func (o options) addr() string {
	return fmt.Sprintf("%s:%d", o.host, o.port)
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing rule sets", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for session files when Redis is not used", Sources: cli.EnvVars("SESSIONS_DIR")},
		&cli.StringFlag{Name: "redis-addr", Usage: "Redis address; enables Redis session storage", Sources: cli.EnvVars("REDIS_ADDR")},
		&cli.StringFlag{Name: "redis-password", Usage: "Redis password", Sources: cli.EnvVars("REDIS_PASSWORD")},
		&cli.IntFlag{Name: "redis-db", Usage: "Redis database number", Sources: cli.EnvVars("REDIS_DB")},
		&cli.StringFlag{Name: "redis-prefix", Value: "chainreaction:", Usage: "Prefix of every Redis key", Sources: cli.EnvVars("REDIS_PREFIX")},
		&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Idle time after which a session is dropped", Sources: cli.EnvVars("SESSION_TTL")},
		&cli.StringSliceFlag{Name: "allowed-origin", Usage: "WebSocket origin to accept (repeatable, default any)", Sources: cli.EnvVars("ALLOWED_ORIGINS")},
		&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "API server the stdio MCP mode tries before starting its own", Sources: cli.EnvVars("API_URL")},
		&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.StringFlag{Name: "log-format", Value: "text", Usage: "Log format: text or json", Sources: cli.EnvVars("LOG_FORMAT")},
	}
}

func optionsFromCommand(cmd *cli.Command) options {
	return options{
		host:           cmd.String("host"),
		port:           cmd.Int("port"),
		configDir:      cmd.String("config-dir"),
		sessionsDir:    cmd.String("sessions-dir"),
		redisAddr:      cmd.String("redis-addr"),
		redisPassword:  cmd.String("redis-password"),
		redisDB:        cmd.Int("redis-db"),
		redisPrefix:    cmd.String("redis-prefix"),
		sessionTTL:     cmd.Duration("session-ttl"),
		allowedOrigins: cmd.StringSlice("allowed-origin"),
		externalAPI:    cmd.String("api-url"),
		ngrokEnabled:   cmd.Bool("ngrok"),
		ngrokAuth:      cmd.String("ngrok-auth"),
		ngrokDomain:    cmd.String("ngrok-domain"),
		debug:          cmd.Bool("debug"),
		logFormat:      cmd.String("log-format"),
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "chainreaction",
		Usage:   AppName,
		Version: Version,
		Flags:   flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return run(ctx, cmd, runHTTPServer)
		},
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return run(ctx, cmd, runHTTPServer)
				},
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server with internal HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return run(ctx, cmd, runStdioMCPWithInternalServer)
				},
			},
		},
	}
}

// main loads .env, parses flags, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("error loading .env file")
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

type runner func(ctx context.Context, opts options, gameService service.GameService) error

func run(ctx context.Context, cmd *cli.Command, mode runner) error {
	opts := optionsFromCommand(cmd)
	if err := setupLogging(opts.debug, opts.logFormat); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"version": Version,
		"mode":    cmd.Name,
	}).Infof("starting %s", AppName)

	gameService, shutdown, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer shutdown()

	return mode(ctx, opts, gameService)
}

// setupLogging configures the global logrus logger
func setupLogging(debug bool, format string) error {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportCaller(true)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}
	return nil
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, opts options, gameService service.GameService) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := websocket.NewHub(opts.allowedOrigins...)
	go hub.Run(ctx)

	apiServer := api.NewServer(gameService, hub)

	addr := opts.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := newMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(log.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.ngrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		log.WithError(err).Error("HTTP server failed")
	}
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("server stopped")
	return err
}

// newMainRouter mounts the API at root and the MCP JSON-RPC endpoint at /mcp
func newMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, opts options, handler http.Handler) {
	if opts.ngrokAuth == "" {
		log.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	log.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.ngrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.ngrokDomain))
		log.WithField("domain", opts.ngrokDomain).Info("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.ngrokAuth))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(log.Fields{
		"rest":      ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Infof("ngrok tunnel established: %s", ngrokURL)

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// initializeServices wires config, session storage and the game service, and
// starts the background session routines. The returned func stops them and
// flushes sessions to storage.
func initializeServices(ctx context.Context, opts options) (service.GameService, func(), error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(opts.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closeStore, err := newPersistence(ctx, opts, configManager)
	if err != nil {
		return nil, nil, err
	}

	sessionManager := session.NewManagerWithPersistence(persistence)

	// Load persisted sessions on startup
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("failed to load persisted sessions")
	}

	gameService := service.NewGameService(sessionManager, configManager)

	routineCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionCleanupRoutine(routineCtx, sessionManager, time.Hour, opts.sessionTTL)
	}()
	go func() {
		defer wg.Done()
		storageSyncRoutine(routineCtx, sessionManager, persistence, 5*time.Second)
	}()

	shutdown := func() {
		cancel()
		wg.Wait()
		if err := sessionManager.SaveAllSessions(); err != nil {
			log.WithError(err).Warn("failed to save sessions on shutdown")
		}
		closeStore()
	}

	return gameService, shutdown, nil
}

// newPersistence picks Redis when an address is configured and falls back to
// session files when Redis is absent or unreachable.
func newPersistence(ctx context.Context, opts options, configManager *config.Manager) (session.SessionPersistence, func(), error) {
	if opts.redisAddr != "" {
		redisStore, err := session.NewRedisPersistence(ctx, session.RedisOptions{
			Addr:     opts.redisAddr,
			Password: opts.redisPassword,
			DB:       opts.redisDB,
			Prefix:   opts.redisPrefix,
			TTL:      opts.sessionTTL,
		}, configManager)
		if err == nil {
			log.WithField("addr", opts.redisAddr).Info("storing sessions in Redis")
			return redisStore, func() { redisStore.Close() }, nil
		}
		log.WithError(err).WithField("addr", opts.redisAddr).Warn("Redis unavailable, falling back to session files")
	}

	fileStore, err := session.NewFilePersistence(opts.sessionsDir, configManager)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	log.WithField("dir", opts.sessionsDir).Info("storing sessions in files")
	return fileStore, func() {}, nil
}

// sessionCleanupRoutine periodically evicts sessions that have not been
// accessed within maxAge.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// storageSyncRoutine periodically drops in-memory sessions whose stored
// record is gone (file deleted or Redis key expired).
func storageSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration) {
	if persistence == nil {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneOrphanedSessions(manager, persistence); pruned > 0 {
				log.WithField("pruned", pruned).Info("storage sync pruned orphaned sessions")
			}
		}
	}
}

func pruneOrphanedSessions(manager *session.Manager, persistence session.SessionPersistence) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.WithField("session", s.ID).Debug("pruned session from memory (record deleted)")
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse the API at opts.externalAPI; if unavailable, it starts a
// minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, opts options, gameService service.GameService) error {
	baseURL := opts.externalAPI
	log.WithField("url", baseURL).Info("checking for external API server")

	if !apiAvailable(baseURL) {
		log.Info("no external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hubCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		hub := websocket.NewHub(opts.allowedOrigins...)
		go hub.Run(hubCtx)

		httpServer := &http.Server{Handler: api.NewServer(gameService, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.WithField("url", baseURL).Info("internal HTTP server started for MCP stdio")
	} else {
		log.WithField("url", baseURL).Info("using external API server for MCP")
	}

	mcpClient := mcp.NewClient(baseURL)

	log.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a Chain Reaction API answers at baseURL
func apiAvailable(baseURL string) bool {
	if baseURL == "" {
		return false
	}
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
