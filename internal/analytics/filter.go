// Package analytics turns a snapshot of completed invoices into ranked,
// trended and summarized sales reports. It never recomputes prices: every
// figure aggregates the frozen UnitPrice/LineTotal/FinalAmount values settled
// by the pricing engine. Report functions are pure over the supplied
// snapshot; a failure surfaces as an AggregationError, never as zeroed rows.
package analytics

import (
	"time"

	"github.com/tmaged/salesbook/internal/models"
)

// Filter narrows a report to an inclusive business-date range and, for
// product reports, a category. Limit truncates ranked rows after sorting;
// zero or negative means no truncation. Nil bounds mean unbounded.
type Filter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Limit    int
}

// dateOnly normalizes a timestamp to its calendar date. Bucketing and range
// checks compare dates, not clock times.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func inRange(d time.Time, from, to *time.Time) bool {
	day := dateOnly(d)
	if from != nil && day.Before(dateOnly(*from)) {
		return false
	}
	if to != nil && day.After(dateOnly(*to)) {
		return false
	}
	return true
}

// completed selects the completed invoices inside the filter's date range.
// Draft and cancelled invoices are excluded from all analytics.
func completed(invoices []models.Invoice, f Filter) []models.Invoice {
	out := make([]models.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != models.StatusCompleted {
			continue
		}
		if !inRange(inv.InvoiceDate, f.From, f.To) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
