package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tmaged/salesbook/internal/analytics"
	"github.com/tmaged/salesbook/internal/models"
	"github.com/tmaged/salesbook/internal/pricing"
	"github.com/tmaged/salesbook/internal/store"
)

var (
	reportFrom     string
	reportTo       string
	reportLimit    int
	reportCategory string
	reportYear     int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Sales reports over completed invoices",
	Long:  `Report aggregates completed invoices into sales reports: product and customer rankings, summaries, daily/monthly series and inventory velocity.`,
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return &t, nil
}

// reportFilter builds the analytics filter from the shared flags.
func reportFilter() (analytics.Filter, error) {
	from, err := parseDate(reportFrom)
	if err != nil {
		return analytics.Filter{}, err
	}
	to, err := parseDate(reportTo)
	if err != nil {
		return analytics.Filter{}, err
	}
	return analytics.Filter{From: from, To: to, Category: reportCategory, Limit: reportLimit}, nil
}

// loadSnapshot fetches the completed invoices the reports aggregate over.
// Date bounds are pushed down to the query; category and limit are applied
// in the aggregation itself. A failed load surfaces as an AggregationError
// naming the report, never as an empty snapshot.
func loadSnapshot(ctx context.Context, report string) ([]models.Invoice, analytics.Filter, error) {
	f, err := reportFilter()
	if err != nil {
		return nil, analytics.Filter{}, err
	}
	invoices, err := invoiceStore.LoadCompleted(ctx, store.InvoiceFilter{From: f.From, To: f.To})
	if err != nil {
		return nil, analytics.Filter{}, analytics.NewError(report, err)
	}
	return invoices, f, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

var productRankCmd = func(use, short string, least bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			report := "top selling products"
			rank := analytics.TopSellingProducts
			if least {
				report = "least selling products"
				rank = analytics.LeastSellingProducts
			}
			invoices, f, err := loadSnapshot(ctx, report)
			if err != nil {
				return err
			}
			rows, err := rank(invoices, f)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No sales found")
				return nil
			}
			fmt.Printf("%-5s %-25s %-12s %-12s %-10s %-12s %-8s\n",
				"ID", "Product", "SKU", "Unit Price", "Qty", "Amount", "% Total")
			fmt.Println("----------------------------------------------------------------------------------------")
			for _, r := range rows {
				fmt.Printf("%-5d %-25s %-12s %-12s %-10s %-12s %-8s\n",
					r.ProductID,
					truncate(r.ProductName, 25),
					r.SKU,
					pricing.Display(r.UnitPrice).String(),
					r.TotalQuantity.String(),
					pricing.Display(r.TotalAmount).String(),
					pricing.Display(r.PercentageOfTotal).String(),
				)
			}
			return nil
		},
	}
}

var customerRankCmd = func(use, short string, byCount bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			report := "top paying customers"
			rank := analytics.TopPayingCustomers
			if byCount {
				report = "top ordering customers"
				rank = analytics.TopOrderingCustomers
			}
			invoices, f, err := loadSnapshot(ctx, report)
			if err != nil {
				return err
			}
			rows, err := rank(invoices, f)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No sales found")
				return nil
			}
			fmt.Printf("%-5s %-25s %-10s %-12s %-12s %-12s\n",
				"ID", "Customer", "Invoices", "Total", "Average", "Last Sale")
			fmt.Println("--------------------------------------------------------------------------------")
			for _, r := range rows {
				fmt.Printf("%-5d %-25s %-10d %-12s %-12s %-12s\n",
					r.CustomerID,
					truncate(r.CustomerName, 25),
					r.InvoiceCount,
					pricing.Display(r.TotalAmount).String(),
					pricing.Display(r.AverageAmount).String(),
					r.LastInvoiceDate.Format("2006-01-02"),
				)
			}
			return nil
		},
	}
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Overall sales summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		invoices, f, err := loadSnapshot(ctx, "sales summary")
		if err != nil {
			return err
		}
		s, err := analytics.SalesSummary(invoices, f)
		if err != nil {
			return err
		}
		fmt.Printf("Invoices:         %d\n", s.InvoiceCount)
		fmt.Printf("Customers:        %d\n", s.CustomerCount)
		fmt.Printf("Items sold:       %s\n", s.TotalQuantity.String())
		fmt.Printf("Gross sales:      %s\n", pricing.Display(s.GrossSales).String())
		fmt.Printf("Profit:           %s\n", pricing.Display(s.TotalProfit).String())
		fmt.Printf("Discounts given:  %s\n", pricing.Display(s.TotalDiscount).String())
		fmt.Printf("Average invoice:  %s\n", pricing.Display(s.AverageInvoiceAmount).String())
		fmt.Printf("Best product:     %s\n", s.BestSellingProduct)
		fmt.Printf("Top customer:     %s\n", s.TopCustomer)
		return nil
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily sales series",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		invoices, f, err := loadSnapshot(ctx, "daily sales")
		if err != nil {
			return err
		}
		rows, err := analytics.DailySales(invoices, f)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No sales found")
			return nil
		}
		fmt.Printf("%-12s %-10s %-10s %-12s %-12s\n", "Date", "Invoices", "Qty", "Amount", "Profit")
		fmt.Println("----------------------------------------------------------")
		for _, r := range rows {
			fmt.Printf("%-12s %-10d %-10s %-12s %-12s\n",
				r.Date.Format("2006-01-02"),
				r.InvoiceCount,
				r.TotalQuantity.String(),
				pricing.Display(r.TotalAmount).String(),
				pricing.Display(r.TotalProfit).String(),
			)
		}
		return nil
	},
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly sales series for one year",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		invoices, err := invoiceStore.LoadCompleted(ctx, store.InvoiceFilter{})
		if err != nil {
			return analytics.NewError("monthly sales", err)
		}
		year := reportYear
		if year == 0 {
			year = time.Now().Year()
		}
		rows, err := analytics.MonthlySales(invoices, year)
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-10s %-12s %-12s %-12s %-10s\n",
			"Month", "Invoices", "Amount", "Profit", "Average", "Growth %")
		fmt.Println("----------------------------------------------------------------------")
		for _, r := range rows {
			fmt.Printf("%-10s %-10d %-12s %-12s %-12s %-10s\n",
				r.Month.String()[:3],
				r.InvoiceCount,
				pricing.Display(r.TotalAmount).String(),
				pricing.Display(r.TotalProfit).String(),
				pricing.Display(r.AverageAmount).String(),
				pricing.Display(r.GrowthPct).String(),
			)
		}
		return nil
	},
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Inventory velocity for active products",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		invoices, err := invoiceStore.LoadCompleted(ctx, store.InvoiceFilter{})
		if err != nil {
			return analytics.NewError("inventory velocity", err)
		}
		products, err := productStore.LoadActive(ctx)
		if err != nil {
			return analytics.NewError("inventory velocity", err)
		}
		rows, err := analytics.InventoryVelocity(invoices, products, time.Now())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No active products")
			return nil
		}
		fmt.Printf("%-5s %-25s %-12s %-10s %-10s %-10s %-10s %-12s\n",
			"ID", "Product", "SKU", "Lifetime", "Last 30d", "Last 90d", "Avg/mo", "Trend")
		fmt.Println("----------------------------------------------------------------------------------------------------")
		for _, r := range rows {
			fmt.Printf("%-5d %-25s %-12s %-10s %-10s %-10s %-10s %-12s\n",
				r.ProductID,
				truncate(r.ProductName, 25),
				r.SKU,
				r.LifetimeQuantity.String(),
				r.Last30Quantity.String(),
				r.Last90Quantity.String(),
				pricing.Display(r.AverageMonthlySales).String(),
				r.Trend,
			)
		}
		return nil
	},
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportFrom, "from", "", "start date (YYYY-MM-DD, inclusive)")
	reportCmd.PersistentFlags().StringVar(&reportTo, "to", "", "end date (YYYY-MM-DD, inclusive)")
	reportCmd.PersistentFlags().IntVar(&reportLimit, "limit", 10, "maximum rows for ranked reports")
	reportCmd.PersistentFlags().StringVar(&reportCategory, "category", "", "restrict product reports to one category")
	reportCmd.PersistentFlags().IntVar(&reportYear, "year", 0, "year for the monthly series (default current)")

	reportCmd.AddCommand(productRankCmd("top-products", "Best selling products", false))
	reportCmd.AddCommand(productRankCmd("least-products", "Least selling products", true))
	reportCmd.AddCommand(customerRankCmd("top-paying", "Customers ranked by amount paid", false))
	reportCmd.AddCommand(customerRankCmd("top-ordering", "Customers ranked by invoice count", true))
	reportCmd.AddCommand(summaryCmd)
	reportCmd.AddCommand(dailyCmd)
	reportCmd.AddCommand(monthlyCmd)
	reportCmd.AddCommand(inventoryCmd)
}
