package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/snapetech/funimationlater/internal/catalog"
	"github.com/snapetech/funimationlater/internal/config"
	"github.com/snapetech/funimationlater/internal/httpclient"
	"github.com/snapetech/funimationlater/internal/metrics"
	"github.com/snapetech/funimationlater/internal/session"
)

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	platform   string
	noColor    bool
}

func addGlobalFlags(fs *pflag.FlagSet) *globalFlags {
	g := &globalFlags{}
	fs.StringVarP(&g.configPath, "config", "c", "", "YAML config file (env FUNIMATION_* overrides it)")
	fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (default: FUNIMATION_LOG_LEVEL)")
	fs.StringVar(&g.logFormat, "log-format", "", "text or json (default: FUNIMATION_LOG_FORMAT)")
	fs.StringVar(&g.platform, "platform", "", "platform for alternates, e.g. ios (default: FUNIMATION_PLATFORM)")
	fs.BoolVar(&g.noColor, "no-color", false, "disable coloured output")
	return g
}

// loadConfig resolves file, env and flag settings, in that order.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if g.configPath != "" {
		c, err := config.LoadFile(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Load()
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if g.platform != "" {
		cfg.Platform = g.platform
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// app is everything a subcommand needs.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	session *session.Session
	client  *catalog.Client
	out     *printer
	reg     *prometheus.Registry
}

func newApp(cfg *config.Config, stdout, stderr io.Writer, noColor bool) (*app, error) {
	log := newLogger(cfg, stderr)
	slog.SetDefault(log)
	reg := prometheus.NewRegistry()
	httpc, err := httpclient.NewSessionClient(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	retry := httpclient.NoRetry
	if cfg.Retry {
		retry = httpclient.DefaultRetryPolicy
	}
	sess, err := session.New(session.Options{
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Client:    httpc,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Retry:     retry,
		HostSem:   httpclient.NewHostSemaphore(cfg.MaxPerHost),
		Metrics:   metrics.New(reg),
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	client := catalog.New(sess, catalog.Options{
		Platform:  cfg.Platform,
		Territory: cfg.Territory,
		PageLimit: cfg.PageLimit,
		Logger:    log,
	})
	return &app{
		cfg:     cfg,
		log:     log,
		session: sess,
		client:  client,
		out:     newPrinter(stdout, noColor),
		reg:     reg,
	}, nil
}

// login authenticates when credentials are configured. With required set,
// missing credentials are an error.
func (a *app) login(ctx context.Context, required bool) error {
	if !a.cfg.HasCredentials() {
		if required {
			return errors.New("set FUNIMATION_USERNAME and FUNIMATION_PASSWORD (or credentials_file) to use this command")
		}
		return nil
	}
	return a.client.Login(ctx, a.cfg.Username, a.cfg.Password)
}

// serveMetrics exposes /metrics on cfg.MetricsAddr until ctx is done.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.reg))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		a.log.Info("metrics listening", "addr", a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server", "err", err)
		}
	}()
}
