// ABOUTME: Entry point for the wardroom workspace administration server.
// ABOUTME: Wires config, platform adapter, engines, event bus, and HTTP surface.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/opsmith-io/wardroom/internal/commands"
	"github.com/opsmith-io/wardroom/internal/config"
	"github.com/opsmith-io/wardroom/internal/dedupe"
	"github.com/opsmith-io/wardroom/internal/events"
	"github.com/opsmith-io/wardroom/internal/intake"
	"github.com/opsmith-io/wardroom/internal/limiter"
	"github.com/opsmith-io/wardroom/internal/metrics"
	"github.com/opsmith-io/wardroom/internal/reconcile"
	"github.com/opsmith-io/wardroom/internal/server"
	"github.com/opsmith-io/wardroom/internal/slack"
	"github.com/opsmith-io/wardroom/internal/storage"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                            _
 __      ____ _ _ __ __| | _ __ ___   ___  _ __ ___
 \ \ /\ / / _' | '__/ _' || '__/ _ \ / _ \| '_ ' _ \
  \ V  V / (_| | | | (_| || |  (_) | (_) | | | | | |
   \_/\_/ \__,_|_|  \__,_||_|  \___/ \___/|_| |_| |_|
`

// uploadClaimTTL is how long an intake event claim stays held. Slack
// redelivers events for up to an hour on missed acks.
const uploadClaimTTL = 90 * time.Minute

// getConfigPath returns the path to the config file.
// Priority: WARDROOM_CONFIG env var > XDG_CONFIG_HOME/wardroom/wardroom.yaml > ~/.config/wardroom/wardroom.yaml
func getConfigPath() string {
	if envPath := os.Getenv("WARDROOM_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "wardroom.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "wardroom", "wardroom.yaml")
}

func main() {
	// Environment files are optional; a missing one is not an error.
	envFile := ".env"
	if env := os.Getenv("WARDROOM_ENV"); env != "" {
		envFile = ".env." + env
	}
	_ = godotenv.Load(envFile)

	if len(os.Args) < 2 {
		fmt.Println("Usage: wardroom <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the administration server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		fmt.Println("  version  Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Intake:  %s\n", cfg.Intake.ChannelID)
	fmt.Println()

	gate := limiter.New(cfg.Limiter.MinInterval)
	adapter := slack.New(cfg.Slack.AccessToken, cfg.Slack.BotToken, gate, logger)

	// Credentials are the only globally fatal dependency; everything
	// downstream degrades per unit of work.
	authCtx, authCancel := context.WithTimeout(ctx, 30*time.Second)
	bot, err := adapter.BotIdentity(authCtx)
	authCancel()
	if err != nil {
		return fmt.Errorf("authenticating with slack: %w", err)
	}
	logger.Info("authenticated", "bot_user", bot)

	met := metrics.New()
	engine := reconcile.New(adapter, met, logger)
	archiver := storage.NewDropbox(cfg.Storage.DropboxToken, logger)
	guard := dedupe.New(uploadClaimTTL, 4096)
	pipeline := intake.New(adapter, archiver, guard, cfg.Intake, met, logger)
	bus := events.NewBus(logger)
	dispatcher := commands.New(adapter, engine, logger)

	go pipeline.Run(ctx, bus)
	go watchChannelCreated(ctx, bus, engine, logger)

	logger.Info("starting wardroom",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"intake_channel", cfg.Intake.ChannelID,
	)

	return server.New(cfg, dispatcher, bus, met, logger).Run(ctx)
}

// watchChannelCreated joins the bot into channels as they appear.
func watchChannelCreated(ctx context.Context, bus *events.Bus, engine *reconcile.Engine, logger *slog.Logger) {
	ch := bus.ChannelCreated.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			if err := engine.HandleChannelCreated(ctx, evt); err != nil {
				logger.Warn("channel_created handling failed",
					"channel", evt.Channel.ID,
					"error", err)
			}
		}
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs), then record attrs.
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/healthz", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("wardroom configuration setup")
	fmt.Println("============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "0.0.0.0:3000")

	fmt.Println("\n--- Slack Configuration ---")
	accessToken := prompt(reader, "User access token (xoxp-...)", "${SLACK_ACCESS_TOKEN}")
	botToken := prompt(reader, "Bot token (xoxb-...)", "${SLACK_BOT_TOKEN}")
	signingSecret := prompt(reader, "App signing secret", "${SLACK_SIGNING_SECRET}")

	fmt.Println("\n--- Intake Configuration ---")
	intakeChannel := prompt(reader, "Intake channel id", "")
	admins := prompt(reader, "Intake admin user ids (comma separated)", "")
	channelPrefix := prompt(reader, "Restricted channel prefix", "dd-")

	fmt.Println("\n--- Storage Configuration ---")
	dropboxToken := prompt(reader, "Dropbox access token", "${DROPBOX_TOKEN}")

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# wardroom configuration\n")
	cfg.WriteString("# Generated by wardroom init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n\n", httpAddr))

	cfg.WriteString("slack:\n")
	cfg.WriteString(fmt.Sprintf("  access_token: \"%s\"\n", accessToken))
	cfg.WriteString(fmt.Sprintf("  bot_token: \"%s\"\n", botToken))
	cfg.WriteString(fmt.Sprintf("  signing_secret: \"%s\"\n\n", signingSecret))

	cfg.WriteString("limiter:\n")
	cfg.WriteString("  min_interval: \"2s\"\n\n")

	cfg.WriteString("intake:\n")
	cfg.WriteString(fmt.Sprintf("  channel_id: \"%s\"\n", intakeChannel))
	if admins != "" {
		cfg.WriteString("  admins:\n")
		for _, id := range strings.Split(admins, ",") {
			cfg.WriteString(fmt.Sprintf("    - \"%s\"\n", strings.TrimSpace(id)))
		}
	}
	cfg.WriteString("  filetype: \"pdf\"\n")
	cfg.WriteString("  name_separator: \"-\"\n")
	cfg.WriteString(fmt.Sprintf("  channel_prefix: \"%s\"\n\n", channelPrefix))

	cfg.WriteString("storage:\n")
	cfg.WriteString(fmt.Sprintf("  dropbox_token: \"%s\"\n\n", dropboxToken))

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n\n", logFormat))

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  path: \"/metrics\"\n")

	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Println("  wardroom serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
