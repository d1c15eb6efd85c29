package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"jira-insights-bot/dispatch"
	"jira-insights-bot/guard"
	"jira-insights-bot/metrics"
	"jira-insights-bot/publish"
	"jira-insights-bot/repo"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

const selfPingInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Slack webhook server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	pipeline, dir, err := newPipeline(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	if err := dir.Refresh(ctx); err != nil {
		// The cache refills on first use.
		logger.Warn().Err(err).Str("where", "main:runServe").Msg("initial component load failed")
	}

	pub := publish.NewPublisher(publish.NewSlackMessenger(slack.New(cfg.SlackBotToken), logger), logger)
	pool := dispatch.NewPool(ctx, cfg.Workers, logger)
	defer pool.Close()

	d := dispatch.New(dir, pipeline, pub, pool, dispatch.Options{
		Processed:     guard.NewProcessedSet(cfg.DedupTTL),
		MessageClock:  guard.NewDebounceClock(cfg.MessageCooldown),
		AnalysisClock: guard.NewDebounceClock(cfg.AnalysisCooldown),
		Metrics:       m,
	}, logger)

	srvOpts := dispatch.ServerOptions{SigningSecret: cfg.SlackSigningSecret, Metrics: m}
	if cfg.SlackSigningSecret == "" {
		logger.Warn().Str("where", "main:runServe").Msg("SLACK_SIGNING_SECRET not set, requests are not verified")
	}
	if cfg.DatabaseURL != "" {
		store, db, err := repo.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		srvOpts.Installs = store
		srvOpts.Exchange = dispatch.SlackExchanger(cfg.SlackClientID, cfg.SlackClientSecret, oauthRedirect(cfg.DeploymentBaseURI))
	}

	refreshEvery := cfg.DirectoryTTL
	if refreshEvery <= 0 {
		refreshEvery = time.Hour
	}
	sched := cron.New()
	if _, err := sched.AddFunc("@every "+refreshEvery.String(), func() {
		if err := dir.Refresh(ctx); err != nil {
			logger.Error().Err(err).Str("where", "main:cron").Msg("component refresh failed")
		}
	}); err != nil {
		return err
	}
	if _, err := sched.AddFunc("@every 10m", d.Cleanup); err != nil {
		return err
	}
	if cfg.DeploymentBaseURI != "" {
		if _, err := sched.AddFunc("@every "+selfPingInterval.String(), func() { selfPing(ctx, cfg.DeploymentBaseURI, logger) }); err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           dispatch.NewServer(d, srvOpts, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("where", "main:runServe").Str("addr", srv.Addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Str("where", "main:runServe").Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	pool.Wait()
	return nil
}

// oauthRedirect must match the redirect URL registered with the Slack app.
func oauthRedirect(base string) string {
	return strings.TrimRight(base, "/") + "/slack/oauth/callback"
}

// selfPing keeps free-tier hosts from idling the service.
func selfPing(ctx context.Context, url string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Err(err).Str("where", "main:selfPing").Msg("bad deployment url")
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("where", "main:selfPing").Msg("health check failed")
		return
	}
	resp.Body.Close()
	log.Debug().Str("where", "main:selfPing").Int("status", resp.StatusCode).Msg("health check ok")
}
