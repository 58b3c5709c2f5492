package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tmaged/salesbook/internal/config"
	"github.com/tmaged/salesbook/internal/db"
	"github.com/tmaged/salesbook/internal/logging"
	"github.com/tmaged/salesbook/internal/store"
)

var (
	cfg           config.Config
	log           *zap.Logger
	dbConn        *gorm.DB
	invoiceStore  *store.InvoiceStore
	productStore  *store.ProductStore
	customerStore *store.CustomerStore
)

var rootCmd = &cobra.Command{
	Use:   "salesbook",
	Short: "Invoice pricing, lifecycle and sales analytics",
	Long: `Salesbook manages invoices for a small sales operation: it prices
invoice items from cost, margin and discounts, walks invoices through
their draft/completed/cancelled lifecycle, and aggregates completed
invoices into sales reports.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()
		var err error
		log, err = logging.New(cfg.Env)
		if err != nil {
			return err
		}
		dbConn, err = db.ConnectAndMigrate()
		if err != nil {
			return err
		}
		invoiceStore = store.NewInvoiceStore(dbConn, log)
		productStore = store.NewProductStore(dbConn, log)
		customerStore = store.NewCustomerStore(dbConn, log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recalcCmd)
	rootCmd.AddCommand(reportCmd)
}
