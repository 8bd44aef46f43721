package gateway

import (
	"context"
	"sort"

	"github.com/billyapp/bankfeed/pkg/common/logger"
	"github.com/shopspring/decimal"
)

// CurrencySummary aggregates the booked transactions of one currency.
// TotalIn and TotalOut are absolute sums; Net is in minus out.
type CurrencySummary struct {
	Currency string          `json:"currency"`
	Count    int             `json:"count"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	Net      decimal.Decimal `json:"net"`
}

// SummarizeTransactions aggregates per-currency totals over the same
// transaction list GetTransactions returns, so it follows the identical
// cache-first policy. Amounts stay exact decimals end to end.
func (g *Gateway) SummarizeTransactions(ctx context.Context, requisitionID string, forceRefresh bool) ([]CurrencySummary, error) {
	txs, err := g.GetTransactions(ctx, requisitionID, forceRefresh)
	if err != nil {
		return nil, err
	}

	byCurrency := map[string]*CurrencySummary{}
	for _, tx := range txs {
		amount, err := decimal.NewFromString(tx.TransactionAmount.Amount)
		if err != nil {
			logger.Warn("skipping transaction with unparseable amount %q: %v", tx.TransactionAmount.Amount, err)
			continue
		}
		cur := tx.TransactionAmount.Currency
		s, ok := byCurrency[cur]
		if !ok {
			s = &CurrencySummary{Currency: cur}
			byCurrency[cur] = s
		}
		s.Count++
		if amount.IsNegative() {
			s.TotalOut = s.TotalOut.Add(amount.Abs())
		} else {
			s.TotalIn = s.TotalIn.Add(amount)
		}
		s.Net = s.Net.Add(amount)
	}

	out := make([]CurrencySummary, 0, len(byCurrency))
	for _, s := range byCurrency {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}
