package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyPercentage returns base reduced by pct percent, rounded half away from zero to cents.
func ApplyPercentage(base decimal.Decimal, pct int) decimal.Decimal {
	if pct <= 0 {
		return base.Round(2)
	}
	factor := decimal.NewFromInt(int64(100 - pct))
	return base.Mul(factor).Div(hundred).Round(2)
}

// Quote describes a price before and after discount.
type Quote struct {
	Original   decimal.Decimal `json:"original"`
	Discounted decimal.Decimal `json:"discounted"`
	Savings    decimal.Decimal `json:"savings"`
	Percentage int             `json:"percentage"`
	EventName  string          `json:"event_name,omitempty"`
}

// HasDiscount reports whether the quote is below the original price.
func (q Quote) HasDiscount() bool {
	return q.Percentage > 0
}

// NewQuote builds a Quote for base under d.
func NewQuote(base decimal.Decimal, d Discount) Quote {
	discounted := ApplyPercentage(base, d.Percentage)
	return Quote{
		Original:   base.Round(2),
		Discounted: discounted,
		Savings:    base.Round(2).Sub(discounted),
		Percentage: d.Percentage,
		EventName:  d.EventName,
	}
}
