// Package report aggregates transactions and category records for the
// home screen, the monthly income/expense screens and text statements.
package report

import (
	"sort"
	"time"

	"github.com/Willizberc/Pexfin/internal/transaction"
)

type Totals struct {
	Income  int64
	Expense int64
	Net     int64
}

// Summarize totals txs by category. It walks every transaction.
func Summarize(txs []*transaction.Transaction) Totals {
	var t Totals

	for _, tx := range txs {
		switch tx.Category {
		case transaction.Income:
			t.Income += tx.Amount
		case transaction.Expense:
			t.Expense += tx.Amount
		}
	}

	t.Net = t.Income - t.Expense

	return t
}

type DailyTotal struct {
	Date  time.Time
	Total int64
}

type MonthlyReport struct {
	Category transaction.Category
	Month    time.Time
	Total    int64
	Daily    []DailyTotal
	Records  []*transaction.Record
}

// MonthBounds returns the first instant of month and of the following month in loc.
func MonthBounds(month time.Time, loc *time.Location) (time.Time, time.Time) {
	m := month.In(loc)
	start := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, loc)

	return start, start.AddDate(0, 1, 0)
}

// Monthly keeps the records of category that fall inside the calendar month
// containing month, and totals them per day in ascending date order.
func Monthly(records []*transaction.Record, category transaction.Category, month time.Time, loc *time.Location) MonthlyReport {
	if loc == nil {
		loc = time.UTC
	}

	start, end := MonthBounds(month, loc)
	report := MonthlyReport{Category: category, Month: start}
	byDay := make(map[time.Time]int64)

	for _, r := range records {
		if r.Category != category {
			continue
		}

		d := r.Date.In(loc)
		if d.Before(start) || !d.Before(end) {
			continue
		}

		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		byDay[day] += r.Amount
		report.Total += r.Amount
		report.Records = append(report.Records, r)
	}

	report.Daily = make([]DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		report.Daily = append(report.Daily, DailyTotal{Date: day, Total: total})
	}

	sort.Slice(report.Daily, func(i, j int) bool { return report.Daily[i].Date.Before(report.Daily[j].Date) })
	sort.SliceStable(report.Records, func(i, j int) bool { return report.Records[i].Date.Before(report.Records[j].Date) })

	return report
}
