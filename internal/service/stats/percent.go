package stats

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Percentages returns part/total*100 rounded to one decimal. A zero total yields 0.
func Percentages(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	value, _ := share(part, total).Float64()
	return value
}

// RoleShares splits total between members and employees. When the two
// groups cover the whole total the employee share is the complement of the
// member share, so both add up to exactly 100.
func RoleShares(members, employees, total int) (float64, float64) {
	if total <= 0 {
		return 0, 0
	}
	memberShare := share(members, total)
	employeeShare := share(employees, total)
	if members+employees == total {
		employeeShare = hundred.Sub(memberShare)
	}
	m, _ := memberShare.Float64()
	e, _ := employeeShare.Float64()
	return m, e
}

func share(part, total int) decimal.Decimal {
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(1)
}

// Ratio returns a/b rounded to one decimal. A zero divisor yields 0.
func Ratio(a, b int) float64 {
	if b <= 0 {
		return 0
	}
	value, _ := decimal.NewFromInt(int64(a)).Div(decimal.NewFromInt(int64(b))).Round(1).Float64()
	return value
}
