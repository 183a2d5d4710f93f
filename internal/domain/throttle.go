package domain

import "github.com/shopspring/decimal"

// ThrottleTier selects the downstream model class for a request.
type ThrottleTier struct {
	Key       string          `json:"key"`
	Threshold decimal.Decimal `json:"threshold"`
}

var (
	TierPremium  = ThrottleTier{Key: "PREMIUM", Threshold: decimal.RequireFromString("0.125")}
	TierStandard = ThrottleTier{Key: "STANDARD", Threshold: decimal.RequireFromString("0.1875")}
	TierEconomy  = ThrottleTier{Key: "ECONOMY", Threshold: decimal.RequireFromString("0.25")}
	TierBasic    = ThrottleTier{Key: "BASIC", Threshold: decimal.RequireFromString("0.35")}
)

// tierOrder is checked top-down; the first threshold that covers the
// remaining share wins.
var tierOrder = []ThrottleTier{TierPremium, TierStandard, TierEconomy}

// ResolveThrottle maps the remaining share of a subscription's allotment to
// a tier. One-time products are never throttled; a nil product gets the
// bottom tier.
func ResolveThrottle(p *Product, remaining int) ThrottleTier {
	if p == nil {
		return TierBasic
	}
	if !p.IsSubscription() {
		return TierPremium
	}
	if p.Allowance <= 0 {
		return TierBasic
	}
	if remaining < 0 {
		remaining = 0
	}
	total := decimal.NewFromInt(int64(p.Allowance))
	left := decimal.NewFromInt(int64(remaining))
	for _, tier := range tierOrder {
		if left.LessThanOrEqual(total.Mul(tier.Threshold)) {
			return tier
		}
	}
	return TierBasic
}
