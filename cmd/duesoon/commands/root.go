package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"duesoon-backend/lib/configuration"
	"duesoon-backend/lib/kvstore"
	"duesoon-backend/lib/renderer"
	"duesoon-backend/lib/renderer/browser"
	"duesoon-backend/lib/renderer/static"
	"duesoon-backend/services/tracker"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "duesoon",
	Short: "duesoon collects assignment due dates from Gradescope course pages and serves an upcoming-work view.",
}

var configPath *string

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "Path to the configuration file.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

type RendererConfig struct {
	// Browser switches from plain HTTP fetching to a real Chrome
	// instance, which also supplies layout geometry to discovery.
	Browser     bool            `json:"browser"`
	RemoteUrl   string          `json:"remote_url"`
	UserDataDir string          `json:"user_data_dir"`
	Cookies     []static.Cookie `json:"cookies"`
	TimeoutSec  int             `json:"timeout_seconds"`
	CacheTTLSec int             `json:"cache_ttl_seconds"`
}

type Config struct {
	BaseUrl     string         `json:"base_url"`
	DataDir     string         `json:"data_dir"`
	Listen      string         `json:"listen"`
	RefreshCron string         `json:"refresh_cron"`
	RateLimitMs int            `json:"rate_limit_ms"`
	Renderer    RendererConfig `json:"renderer"`
}

func readConfig() Config {
	cfg, err := configuration.Read[Config](*configPath)
	if err != nil {
		fatal("failed to read config", err)
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = "https://www.gradescope.com/"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ".dev/duesoon"
	}
	if cfg.Listen == "" {
		cfg.Listen = "0.0.0.0:8231"
	}
	return cfg
}

func newRenderer(cfg Config) renderer.Renderer {
	timeout := time.Duration(cfg.Renderer.TimeoutSec) * time.Second

	if cfg.Renderer.Browser {
		r, err := browser.New(browser.Options{
			RemoteUrl:   cfg.Renderer.RemoteUrl,
			UserDataDir: cfg.Renderer.UserDataDir,
			Timeout:     timeout,
		})
		if err != nil {
			fatal("failed to start browser renderer", err)
		}
		return r
	}

	r, err := static.New(static.Options{
		BaseUrl:  cfg.BaseUrl,
		Cookies:  cfg.Renderer.Cookies,
		Timeout:  timeout,
		CacheTTL: time.Duration(cfg.Renderer.CacheTTLSec) * time.Second,
	})
	if err != nil {
		fatal("failed to create http renderer", err)
	}
	return r
}

// openService wires the durable store and the configured renderer into
// a tracker service. The returned cleanup closes the store.
func openService(cfg Config) (*tracker.Service, func()) {
	kv, err := kvstore.Open(cfg.DataDir)
	if err != nil {
		fatal("failed to open data store", err)
	}

	svc := tracker.NewService(tracker.NewStore(kv), newRenderer(cfg), tracker.Options{
		BaseUrl:   cfg.BaseUrl,
		RateLimit: time.Duration(cfg.RateLimitMs) * time.Millisecond,
	})
	return svc, func() {
		if err := kv.Close(); err != nil {
			slog.Warn("failed to close data store", "err", err)
		}
	}
}
