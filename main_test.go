package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/chainreaction/api"
	"github.com/wricardo/mcp-training/chainreaction/game/engine"
	"github.com/wricardo/mcp-training/chainreaction/game/session"
	"github.com/wricardo/mcp-training/chainreaction/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}

	expectedAppName := "Chain Reaction Game Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

func testOptions(t *testing.T) options {
	t.Helper()
	return options{
		host:        "localhost",
		port:        8080,
		configDir:   "configs",
		sessionsDir: t.TempDir(),
		sessionTTL:  time.Hour,
	}
}

func TestInitializeServices(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	opts := testOptions(t)
	gameService, shutdown, err := initializeServices(context.Background(), opts)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	ctx := context.Background()
	info, err := gameService.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.GameState == nil || info.GameState.Grid.Rows() != 10 || info.GameState.Grid.Cols() != 6 {
		t.Errorf("Expected the 10x6 classic board by default, got %+v", info.GameState)
	}

	shutdown()

	// shutdown flushes every session to the sessions directory
	if _, err := os.Stat(filepath.Join(opts.sessionsDir, info.ID+".json")); err != nil {
		t.Errorf("Expected session file after shutdown: %v", err)
	}
}

func TestInitializeServices_InvalidConfigDir(t *testing.T) {
	opts := testOptions(t)
	opts.configDir = "/non/existent/path"

	if _, _, err := initializeServices(context.Background(), opts); err == nil {
		t.Error("Expected error for non-existent config directory")
	}
}

func TestInitializeServices_RedisFallback(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	opts := testOptions(t)
	// nothing listens on port 1
	opts.redisAddr = "127.0.0.1:1"

	gameService, shutdown, err := initializeServices(context.Background(), opts)
	if err != nil {
		t.Fatalf("Expected fallback to session files, got: %v", err)
	}
	defer shutdown()

	if _, err := gameService.CreateSession(context.Background(), "quick"); err != nil {
		t.Errorf("CreateSession failed after fallback: %v", err)
	}
}

// unsetEnv clears keys for the test and restores them afterwards
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestFlagDefaults(t *testing.T) {
	var got options
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got = optionsFromCommand(c)
		return nil
	}
	unsetEnv(t, "PORT", "HOST", "CONFIG_DIR", "SESSIONS_DIR", "SESSION_TTL", "LOG_FORMAT")

	if err := cmd.Run(context.Background(), []string{"chainreaction"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.port != 8080 {
		t.Errorf("Expected default port 8080, got %d", got.port)
	}
	if got.host == "" || got.configDir == "" || got.sessionsDir == "" {
		t.Errorf("Expected host, config dir and sessions dir defaults, got %+v", got)
	}
	if got.sessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %v", got.sessionTTL)
	}
	if got.logFormat != "text" {
		t.Errorf("Expected text log format, got %q", got.logFormat)
	}
}

func TestFlagsFromEnvironment(t *testing.T) {
	unsetEnv(t, "HOST")
	t.Setenv("PORT", "9191")
	t.Setenv("REDIS_ADDR", "redis:6379")

	var got options
	cmd := newCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		got = optionsFromCommand(c)
		return nil
	}

	if err := cmd.Run(context.Background(), []string{"chainreaction", "--host", "0.0.0.0"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got.port != 9191 || got.redisAddr != "redis:6379" || got.host != "0.0.0.0" {
		t.Errorf("Unexpected options %+v", got)
	}
	if got.addr() != "0.0.0.0:9191" {
		t.Errorf("Unexpected addr %s", got.addr())
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"text", false},
		{"json", false},
		{"", false},
		{"xml", true},
	}
	for _, tt := range tests {
		if err := setupLogging(false, tt.format); (err != nil) != tt.wantErr {
			t.Errorf("setupLogging(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
	setupLogging(false, "text")
}

func TestPruneOrphanedSessions(t *testing.T) {
	dir := t.TempDir()
	persistence, err := session.NewFilePersistence(dir, nil)
	if err != nil {
		t.Fatalf("NewFilePersistence failed: %v", err)
	}
	manager := session.NewManagerWithPersistence(persistence)

	cfg := engine.CustomConfig(3, 3, []engine.Player{"A", "B"})
	if _, err := manager.Create("keep", cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := manager.Create("gone", cfg); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "gone.json")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if pruned := pruneOrphanedSessions(manager, persistence); pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session left in memory, got %d", manager.Count())
	}
}

func TestMCPEndpoint(t *testing.T) {
	if _, err := os.Stat("configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	gameService, shutdown, err := initializeServices(context.Background(), testOptions(t))
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer shutdown()

	apiServer := httptest.NewServer(api.NewServer(gameService, nil))
	defer apiServer.Close()

	router := newMainRouter(api.NewServer(gameService, nil), mcp.NewClient(apiServer.URL))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/mcp", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET /mcp, got %d", w.Code)
	}

	initialize := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{},
			"clientInfo":      map[string]interface{}{"name": "test", "version": "1.0.0"},
		},
	}
	body, _ := json.Marshal(initialize)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/mcp", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /mcp, got %d", w.Code)
	}

	var resp struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode MCP response: %v", err)
	}
	if resp.Result.ServerInfo.Name != "Chain Reaction" {
		t.Errorf("Expected server name Chain Reaction, got %q (%s)", resp.Result.ServerInfo.Name, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected API routes behind the main router, got %d", w.Code)
	}
}

func TestAPIAvailable(t *testing.T) {
	healthy := httptest.NewServer(api.NewServer(nil, nil))
	defer healthy.Close()

	if !apiAvailable(healthy.URL) {
		t.Error("Expected API to be reported available")
	}
	if apiAvailable("") {
		t.Error("Empty URL should not be available")
	}
	if apiAvailable("http://127.0.0.1:1") {
		t.Error("Closed port should not be available")
	}
}
