package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daybook/internal/models"
)

func TestParsePeriod(t *testing.T) {
	for _, in := range []string{"", "none"} {
		p, err := ParsePeriod(in)
		require.NoError(t, err)
		assert.Equal(t, PeriodNone, p)
	}

	p, err := ParsePeriod("yearly")
	require.NoError(t, err)
	assert.Equal(t, PeriodYearly, p)

	_, err = ParsePeriod("weekly")
	assert.Error(t, err)
}

func TestSummarizeByPeriod(t *testing.T) {
	txs := []models.Transaction{
		tx("a", time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), models.TransactionTypeCredit, 100),
		tx("b", time.Date(2024, time.March, 28, 0, 0, 0, 0, time.UTC), models.TransactionTypeDebit, 30),
		tx("c", time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC), models.TransactionTypeDebit, 5),
		tx("d", time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC), models.TransactionTypeCredit, 7),
	}

	t.Run("monthly newest first", func(t *testing.T) {
		groups := SummarizeByPeriod(txs, PeriodMonthly)
		require.Len(t, groups, 3)
		assert.Equal(t, "2024-03", groups[0].Label)
		assert.Equal(t, "2024-01", groups[1].Label)
		assert.Equal(t, "2023-12", groups[2].Label)

		assert.Equal(t, 2, groups[0].Count)
		assertDecimal(t, "100", groups[0].Credit)
		assertDecimal(t, "30", groups[0].Debit)
		assertDecimal(t, "70", groups[0].Net)
	})

	t.Run("yearly", func(t *testing.T) {
		groups := SummarizeByPeriod(txs, PeriodYearly)
		require.Len(t, groups, 2)
		assert.Equal(t, "2024", groups[0].Label)
		assertDecimal(t, "65", groups[0].Net)
		assert.Equal(t, "2023", groups[1].Label)
		assertDecimal(t, "7", groups[1].Net)
	})

	t.Run("none", func(t *testing.T) {
		assert.Empty(t, SummarizeByPeriod(txs, PeriodNone))
	})
}

func TestMonthlySeries(t *testing.T) {
	now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("a", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), models.TransactionTypeCredit, 40),
		tx("b", time.Date(2023, time.November, 30, 0, 0, 0, 0, time.UTC), models.TransactionTypeDebit, 15),
		tx("c", time.Date(2023, time.August, 1, 0, 0, 0, 0, time.UTC), models.TransactionTypeDebit, 999),
	}

	series := MonthlySeries(txs, now, 6)
	require.Len(t, series, 6)

	labels := make([]string, len(series))
	for i, p := range series {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"Oct 2023", "Nov 2023", "Dec 2023", "Jan 2024", "Feb 2024", "Mar 2024"}, labels)

	assertDecimal(t, "15", series[1].Debit)
	assertDecimal(t, "40", series[5].Credit)
	assert.Equal(t, 0, series[0].Count)
	assert.True(t, series[2].Net.IsZero())

	assert.Nil(t, MonthlySeries(txs, now, 0))
}
