package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"daybook/internal/models"
)

// AccountBalance is the credit/debit position of one main account.
type AccountBalance struct {
	MainAccountID string          `json:"main_account_id"`
	Name          string          `json:"name"`
	Credit        decimal.Decimal `json:"credit"`
	Debit         decimal.Decimal `json:"debit"`
	Balance       decimal.Decimal `json:"balance"`
}

// BalancesByMainAccount aggregates txs per main account, ordered by account
// name. Names come from the joined MainAccount when it was loaded.
func BalancesByMainAccount(txs []models.Transaction) []AccountBalance {
	byID := make(map[string]*AccountBalance)
	for i := range txs {
		tx := &txs[i]
		b, ok := byID[tx.MainAccountID]
		if !ok {
			b = &AccountBalance{
				MainAccountID: tx.MainAccountID,
				Credit:        decimal.Zero,
				Debit:         decimal.Zero,
				Balance:       decimal.Zero,
			}
			byID[tx.MainAccountID] = b
		}
		if b.Name == "" && tx.MainAccount != nil {
			b.Name = tx.MainAccount.Name
		}
		switch tx.Type {
		case models.TransactionTypeCredit:
			b.Credit = b.Credit.Add(tx.Amount)
		case models.TransactionTypeDebit:
			b.Debit = b.Debit.Add(tx.Amount)
		}
		b.Balance = b.Credit.Sub(b.Debit)
	}

	out := make([]AccountBalance, 0, len(byID))
	for _, b := range byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].MainAccountID < out[j].MainAccountID
	})
	return out
}
