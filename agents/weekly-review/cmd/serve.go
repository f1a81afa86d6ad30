package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	weeklyreview "progress-dashboard/agents/weekly-review"
	"progress-dashboard/shared/monitoring"
	"progress-dashboard/shared/scheduler"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the weekly review trigger and health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			agent, err := ctx.newAgent(cmd)
			if err != nil {
				return err
			}
			defer agent.Close()

			monitor := monitoring.NewMonitor(ctx.logger)
			server := &http.Server{
				Addr:         ctx.cfg.Server.Addr,
				Handler:      weeklyreview.NewRouter(agent.Service(), monitor, ctx.logger),
				ReadTimeout:  time.Duration(ctx.cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(ctx.cfg.Server.WriteTimeoutSeconds) * time.Second,
			}

			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error {
				ctx.logger.Info("http server listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if withScheduler {
				s := scheduler.New(ctx.cfg.Schedule, ctx.cfg.Location(), agent, monitor, ctx.logger)
				g.Go(func() error {
					if err := s.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "Also send the review on the configured cron schedule")
	return cmd
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Send the review on the configured cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			agent := weeklyreview.NewWeeklyReviewAgent(ctx.cfg, ctx.logger)
			defer agent.Close()

			s := scheduler.New(ctx.cfg.Schedule, ctx.cfg.Location(), agent, nil, ctx.logger)
			if err := s.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
