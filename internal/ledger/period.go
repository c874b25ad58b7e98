package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"daybook/internal/models"
)

// Period selects how transactions are grouped for summaries.
type Period string

const (
	PeriodNone    Period = "none"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// PeriodSummary aggregates the transactions falling into one calendar period.
type PeriodSummary struct {
	Label  string          `json:"label"`
	Start  time.Time       `json:"start"`
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
	Net    decimal.Decimal `json:"net"`
	Count  int             `json:"count"`
}

func (p *PeriodSummary) add(tx *models.Transaction) {
	switch tx.Type {
	case models.TransactionTypeCredit:
		p.Credit = p.Credit.Add(tx.Amount)
	case models.TransactionTypeDebit:
		p.Debit = p.Debit.Add(tx.Amount)
	}
	p.Net = p.Credit.Sub(p.Debit)
	p.Count++
}

func newPeriodSummary(label string, start time.Time) *PeriodSummary {
	return &PeriodSummary{
		Label:  label,
		Start:  start,
		Credit: decimal.Zero,
		Debit:  decimal.Zero,
		Net:    decimal.Zero,
	}
}

// ParsePeriod converts a user supplied summary type. An empty string means PeriodNone.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodNone:
		return PeriodNone, nil
	case PeriodMonthly, PeriodYearly:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown summary period %q", s)
}

// SummarizeByPeriod groups txs by calendar month or year, newest period
// first. PeriodNone yields no groups.
func SummarizeByPeriod(txs []models.Transaction, period Period) []PeriodSummary {
	if period != PeriodMonthly && period != PeriodYearly {
		return nil
	}

	groups := make(map[time.Time]*PeriodSummary)
	for i := range txs {
		start, label := periodStart(txs[i].Date, period)
		g, ok := groups[start]
		if !ok {
			g = newPeriodSummary(label, start)
			groups[start] = g
		}
		g.add(&txs[i])
	}

	out := make([]PeriodSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	return out
}

// MonthlySeries returns one entry per calendar month for the months ending
// with the month of now, oldest first. Months without activity are present
// with zero figures and transactions outside the window are ignored.
func MonthlySeries(txs []models.Transaction, now time.Time, months int) []PeriodSummary {
	if months <= 0 {
		return nil
	}

	current, _ := periodStart(now, PeriodMonthly)
	series := make([]*PeriodSummary, months)
	index := make(map[time.Time]*PeriodSummary, months)
	for i := 0; i < months; i++ {
		start := current.AddDate(0, i-months+1, 0)
		series[i] = newPeriodSummary(start.Format("Jan 2006"), start)
		index[start] = series[i]
	}

	for i := range txs {
		start, _ := periodStart(txs[i].Date, PeriodMonthly)
		if p, ok := index[start]; ok {
			p.add(&txs[i])
		}
	}

	out := make([]PeriodSummary, months)
	for i, p := range series {
		out[i] = *p
	}
	return out
}

func periodStart(t time.Time, period Period) (time.Time, string) {
	t = t.UTC()
	if period == PeriodYearly {
		start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Format("2006")
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.Format("2006-01")
}
