// Package ledger derives totals, balances and running balances from a set of
// transactions. Everything here is pure: callers hand in the rows they
// fetched and get figures back.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"daybook/internal/models"
)

// Totals are the credit and debit sums of a transaction set.
// Balance always equals TotalCredit - TotalDebit.
type Totals struct {
	TotalCredit decimal.Decimal `json:"total_credit"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	Balance     decimal.Decimal `json:"balance"`
}

// Summary is a transaction set together with its aggregates.
type Summary struct {
	Totals
	RunningBalance map[string]decimal.Decimal `json:"running_balance"`
}

// Summarize sums credits and debits over txs.
func Summarize(txs []models.Transaction) Totals {
	credit := decimal.Zero
	debit := decimal.Zero
	for i := range txs {
		switch txs[i].Type {
		case models.TransactionTypeCredit:
			credit = credit.Add(txs[i].Amount)
		case models.TransactionTypeDebit:
			debit = debit.Add(txs[i].Amount)
		}
	}
	return Totals{
		TotalCredit: credit,
		TotalDebit:  debit,
		Balance:     credit.Sub(debit),
	}
}

// RunningBalance orders txs newest first and accumulates signed amounts in
// that order, so the value recorded for a row covers the row itself and every
// newer row in the set. Rows sharing a date keep their input order.
func RunningBalance(txs []models.Transaction) map[string]decimal.Decimal {
	ordered := make([]*models.Transaction, len(txs))
	for i := range txs {
		ordered[i] = &txs[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.After(ordered[j].Date)
	})

	balances := make(map[string]decimal.Decimal, len(txs))
	acc := decimal.Zero
	for _, tx := range ordered {
		acc = acc.Add(Signed(tx))
		balances[tx.ID] = acc
	}
	return balances
}

// Aggregate computes totals and running balances in one call.
func Aggregate(txs []models.Transaction) Summary {
	return Summary{
		Totals:         Summarize(txs),
		RunningBalance: RunningBalance(txs),
	}
}

// Signed returns the amount of tx with credits positive and debits negative.
func Signed(tx *models.Transaction) decimal.Decimal {
	if tx.Type == models.TransactionTypeDebit {
		return tx.Amount.Neg()
	}
	return tx.Amount
}
