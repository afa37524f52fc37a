package report

import (
	"math"

	"github.com/shopspring/decimal"
)

// Rate returns num/den as a percentage rounded to 2 decimals, 0 when den is 0.
func Rate(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return Round2(float64(num) / float64(den) * 100)
}

// Ratio returns num/den rounded to 2 decimals, 0 when den is 0.
func Ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return Round2(num / den)
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Average divides a money sum by a count, 0 when count is 0.
func Average(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(count)).Round(2)
}

// Share returns part/whole as a percentage, 0 when whole is 0.
func Share(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Float64()
	return Round2(f)
}

// Stage is one step of a funnel.
type Stage struct {
	Name  string `json:"stage"`
	Count int64  `json:"count"`
}

// Funnel returns the conversion rate between each pair of consecutive
// stages keyed "<a>_to_<b>".
func Funnel(stages []Stage) map[string]float64 {
	rates := make(map[string]float64, len(stages))
	for i := 1; i < len(stages); i++ {
		prev, cur := stages[i-1], stages[i]
		rates[prev.Name+"_to_"+cur.Name] = Rate(cur.Count, prev.Count)
	}
	return rates
}

// Float converts a money value for ratio math.
func Float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
