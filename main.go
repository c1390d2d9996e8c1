// Command memo-game starts the multiplayer memo game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, preset and result directories, token signing,
// the optional NATS bridge and Redis result store, debug logging, version
// output, and optional ngrok tunneling for external access during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/memo-game/api"
	"github.com/wricardo/memo-game/auth"
	"github.com/wricardo/memo-game/game/config"
	"github.com/wricardo/memo-game/game/service"
	"github.com/wricardo/memo-game/game/session"
	"github.com/wricardo/memo-game/transport/mcp"
	"github.com/wricardo/memo-game/transport/nats"
	"github.com/wricardo/memo-game/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Memo Game Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envDefault("CONFIG_DIR", "configs"), "Directory containing board presets")
	resultsDir   = flag.String("results-dir", envDefault("RESULTS_DIR", "results"), "Directory for finished game results")
	usersFile    = flag.String("users-file", envDefault("USERS_FILE", ""), "JSON file seeding player display names (optional)")
	presetName   = flag.String("default-preset", envDefault("DEFAULT_PRESET", ""), "Preset used when a request names none (optional)")
	jwtSecret    = flag.String("jwt-secret", "", "Secret used to sign player tokens (or use JWT_SECRET env var)")
	natsURL      = flag.String("nats-url", "", "NATS server URL enabling the NATS transport (or use NATS_URL env var)")
	redisURL     = flag.String("redis-url", "", "Redis URL storing results in Redis instead of files (or use REDIS_URL env var)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

const (
	cleanupInterval = 10 * time.Minute
	soloRetention   = time.Hour
)

// envDefault returns the value of the environment variable name, or fallback when unset.
func envDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// flagOrEnv returns the flag value, falling back to the first non-empty
// environment variable among names.
func flagOrEnv(value string, names ...string) string {
	if value != "" {
		return value
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

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
		fmt.Fprintf(os.Stderr, "  %s                                   # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -jwt-secret s3cret -port 9090     # Run HTTP server on port 9090\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -nats-url nats://localhost:4222   # Also accept games over NATS\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                         # Run MCP stdio server\n", os.Args[0])
	}
}

// services holds the long-lived components shared by every transport.
type services struct {
	game    service.GameService
	solo    *session.SoloStore
	tokens  *auth.TokenService
	results session.ResultStore
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	svcs, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svcs.close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(svcs)
		return

	case "server", "http":
		runHTTPServer(svcs)

	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If a NATS URL is configured the NATS bridge is started alongside it, and if
// ngrok is enabled (via flag or environment) a public tunnel is provisioned.
func runHTTPServer(svcs *services) {
	hub := websocket.NewHub(svcs.game)
	go hub.Run()

	apiServer := api.NewServer(svcs.game, hub)

	addr := fmt.Sprintf("%s:%d", *host, *port)

	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	bridge := startNATSBridge(svcs.game)

	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanupRoutine(ctx, svcs)
	}()

	if ngrokShouldRun() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.Printf("Received signal: %v. Shutting down...", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if bridge != nil {
		bridge.Close()
	}

	wg.Wait()
	log.Println("Server stopped")
}

// mcpHandler serves single JSON-RPC messages posted to /mcp
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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
	}
}

// bridgeHandle owns the NATS connection and bridge so both close together
type bridgeHandle struct {
	bridge *nats.Bridge
	drain  func() error
}

func (h *bridgeHandle) Close() {
	h.bridge.Close()
	if err := h.drain(); err != nil {
		log.Printf("[nats] drain error: %v", err)
	}
}

// startNATSBridge connects to NATS when a URL is configured. Failures are
// logged and leave the websocket transport as the only one.
func startNATSBridge(gameService service.GameService) *bridgeHandle {
	url := flagOrEnv(*natsURL, "NATS_URL")
	if url == "" {
		return nil
	}

	nc, err := nats.Connect(url, AppName)
	if err != nil {
		log.Printf("Warning: NATS transport disabled: %v", err)
		return nil
	}

	bridge := nats.NewBridge(nc, gameService)
	if err := bridge.Start(); err != nil {
		log.Printf("Warning: NATS transport disabled: %v", err)
		nc.Close()
		return nil
	}

	log.Printf("NATS transport: %s (subjects %s, %s, %s)", nc.ConnectedUrl(),
		nats.SubjectJoin, nats.SubjectMove, nats.SubjectLeave)
	return &bridgeHandle{bridge: bridge, drain: nc.Drain}
}

// ngrokShouldRun reports whether ngrok is enabled by flag or NGROK_ENABLED
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	envEnabled := os.Getenv("NGROK_ENABLED")
	return envEnabled == "true" || envEnabled == "1"
}

// runNgrokTunnel serves handler through an ngrok tunnel until ctx ends
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := flagOrEnv(*ngrokAuth, "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain := flagOrEnv(*ngrokDomain, "NGROK_DOMAIN"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires presets, result storage, tokens, names and the
// game service.
func initializeServices() (*services, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	if *presetName != "" {
		if err := configManager.SetDefault(*presetName); err != nil {
			return nil, fmt.Errorf("failed to select default preset: %w", err)
		}
	}

	results, err := newResultStore()
	if err != nil {
		return nil, err
	}

	secret := flagOrEnv(*jwtSecret, "JWT_SECRET")
	if secret == "" {
		secret = uuid.NewString()
		log.Println("Warning: no JWT secret configured, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenService(secret, auth.DefaultTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	directory, err := auth.LoadDirectory(*usersFile)
	if err != nil {
		return nil, err
	}
	if directory.Len() > 0 {
		log.Printf("Loaded %d player names from %s", directory.Len(), *usersFile)
	}

	solo := session.NewSoloStore(results)
	gameService := service.NewGameService(service.Deps{
		Registry: session.NewRegistryWithStore(results),
		Solo:     solo,
		Results:  results,
		Configs:  configManager,
		Tokens:   tokens,
		Names:    directory,
	})

	return &services{
		game:    gameService,
		solo:    solo,
		tokens:  tokens,
		results: results,
	}, nil
}

// newResultStore picks Redis when a URL is configured, files otherwise
func newResultStore() (session.ResultStore, error) {
	if url := flagOrEnv(*redisURL, "REDIS_URL"); url != "" {
		store, err := session.NewRedisPersistence(url)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis result store: %w", err)
		}
		log.Printf("Storing results in Redis")
		return store, nil
	}

	store, err := session.NewFilePersistence(*resultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result store: %w", err)
	}
	log.Printf("Storing results in %s", *resultsDir)
	return store, nil
}

// close stops running countdowns and releases the result store
func (s *services) close() {
	s.solo.StopAll()
	if closer, ok := s.results.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Warning: failed to close result store: %v", err)
		}
	}
}

// cleanupRoutine periodically forgets finished solo games and expired
// blacklist entries.
func cleanupRoutine(ctx context.Context, svcs *services) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := svcs.solo.CleanupFinished(soloRetention); removed > 0 {
				log.Printf("Cleaned up %d finished solo games", removed)
			}
			if pruned := svcs.tokens.PruneBlacklist(); pruned > 0 {
				log.Printf("Pruned %d expired blacklist entries", pruned)
			}
		}
	}
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(svcs *services) {
	var baseURL string

	externalURL := "http://localhost:8080"
	log.Printf("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", externalURL)
		baseURL = externalURL
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.Fatalf("Failed to get available port: %v", err)
		}

		internalAddr := fmt.Sprintf("127.0.0.1:%d", listener.Addr().(*net.TCPAddr).Port)
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		hub := websocket.NewHub(svcs.game)
		go hub.Run()

		httpServer := &http.Server{
			Handler: api.NewServer(svcs.game, hub),
		}

		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)

	if baseURL == externalURL {
		log.Println("MCP stdio server ready (using external HTTP server)")
	} else {
		log.Println("MCP stdio server ready (using internal HTTP server)")
	}

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}
