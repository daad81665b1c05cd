package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/abhisek/anuvad/internal/clock"
	"github.com/abhisek/anuvad/internal/evaluator"
	"github.com/abhisek/anuvad/internal/janitor"
	"github.com/abhisek/anuvad/internal/keepalive"
	"github.com/abhisek/anuvad/internal/learner"
	"github.com/abhisek/anuvad/internal/llm"
	"github.com/abhisek/anuvad/internal/logging"
	"github.com/abhisek/anuvad/internal/progress"
	"github.com/abhisek/anuvad/internal/selector"
	"github.com/abhisek/anuvad/internal/server"
	"github.com/abhisek/anuvad/internal/tracking"
	"github.com/abhisek/anuvad/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		logger := logging.New(cfg.Log, os.Stderr)
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var recorder llm.Recorder
		var attempts tutor.AttemptRecorder
		if noAudit, _ := cmd.Flags().GetBool("no-audit"); !noAudit {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			recorder, attempts = st, st
		}

		provider, err := llm.NewProvider(ctx, cfg.LLMModelConfig(), recorder, logger)
		if err != nil {
			return fmt.Errorf("LLM provider not configured: %w", err)
		}

		clk := clock.Real{}
		sessions := learner.NewMemoryStore(clk, progress.DefaultPolicy())
		codes := tracking.NewStore(clk, cfg.Session.TrackingTimeout)

		evalCfg := evaluator.DefaultConfig()
		evalCfg.MaxPriorSentences = cfg.Tutor.PriorSentences
		evalCfg.MaxRecentAttempts = cfg.Tutor.RecentAttempts
		evalCfg.MaxHistoryTurns = cfg.Tutor.HistoryTurns

		svc := tutor.New(tutor.Deps{
			Sessions:  sessions,
			Codes:     codes,
			Evaluator: evaluator.New(provider, evalCfg),
			Chooser:   selector.New(selector.DefaultTypes, selector.DefaultTopics, nil),
			Clock:     clk,
			Recorder:  attempts,
			Logger:    logger,
		}, tutor.Options{
			MaxGenerationAttempts: cfg.Tutor.GenerationAttempts,
			MaxHistoryTurns:       cfg.Tutor.HistoryTurns,
			MaxRecentAttempts:     cfg.Tutor.RecentAttempts,
		})

		sched := gocron.NewScheduler(time.UTC)
		jan := janitor.New(sessions, codes, clk, janitor.Config{
			SessionTimeout:  cfg.Session.Timeout,
			TrackingTimeout: cfg.Session.TrackingTimeout,
		}, logger)
		if _, err := jan.Register(sched, cfg.Session.SweepInterval); err != nil {
			return err
		}
		if cfg.KeepAlive.URL != "" {
			pinger := keepalive.New(cfg.KeepAlive.URL, nil, logger)
			if _, err := pinger.Register(sched, cfg.KeepAlive.Interval); err != nil {
				return err
			}
		}
		sched.StartAsync()
		defer sched.Stop()

		srv := server.New(svc, server.Options{
			Version:        version,
			RequestTimeout: cfg.Server.RequestTimeout,
			Logger:         logger,
		})
		return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :5000, overrides ANUVAD_ADDR)")
	serveCmd.Flags().Bool("no-audit", false, "Do not record model calls and attempts in the audit log")
}
