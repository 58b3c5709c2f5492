package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tmaged/salesbook/internal/scheduler"
)

var recalcWatch bool

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recompute stored totals for draft invoices",
	Long: `Recalc compares the stored totals of every draft invoice with what the
pricing rules say they should be and rewrites the ones that drifted.

With --watch it keeps running: a periodic pass plus an immediate,
debounced pass whenever the process receives SIGHUP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if !recalcWatch {
			drifted, err := invoiceStore.RecomputeDraftTotals(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("recalc done, %d invoice(s) corrected\n", drifted)
			return nil
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		deb := scheduler.NewDebouncer(cfg.ReportDebounce, log)
		defer deb.Stop()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				deb.Schedule(func(runCtx context.Context) {
					if _, err := invoiceStore.RecomputeDraftTotals(runCtx); err != nil {
						log.Warn("recompute pass failed", zap.Error(err))
					}
				})
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			cancel()
		}()

		log.Info("recalc watch started", zap.Duration("interval", cfg.RecomputeInterval))
		scheduler.RunRecomputeLoop(ctx, cfg.RecomputeInterval, invoiceStore, log)
		return nil
	},
}

func init() {
	recalcCmd.Flags().BoolVar(&recalcWatch, "watch", false, "keep running and recompute periodically")
}
