package insights

import (
	"math"

	"github.com/lumenlytics/creator-insights/internal/models"
)

// Pure metric functions. Ratio metrics return nil, never zero, when their
// denominator is zero: "not computable" must stay distinguishable from
// "measured zero performance".

// Round2 rounds to 2 decimal places, half away from zero. Every ratio metric
// in this package goes through it.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// EngagementRate returns (likes+comments)/reach as a percentage rounded to
// 2 decimals, or nil when reach is zero. Zero-reach posts are legitimate
// (boosted/brand content), so this is an undefined result, not an error.
func EngagementRate(reach, likes, comments int64) *float64 {
	if reach == 0 {
		return nil
	}
	rate := Round2(float64(likes+comments) / float64(reach) * 100)
	return &rate
}

// ContractPayout derives the total payout for a contract: rate × post count
// for basis=post, rate × contract orders for basis=order. The stored
// TotalPayout on the contract is never trusted when the derivation is
// available. An unrecognized basis is a data-quality fault.
func ContractPayout(c *models.PayoutContract, postCount int64) (float64, error) {
	switch c.Basis {
	case models.BasisPost:
		return c.Rate * float64(postCount), nil
	case models.BasisOrder:
		return c.Rate * float64(c.Orders), nil
	}
	return 0, &models.InvalidBasisError{ContractID: c.ID, Basis: string(c.Basis)}
}

// ROI returns (revenue-payout)/payout rounded to 2 decimals, or nil when
// payout is zero (ROI is undefined there, not infinite and not zero).
func ROI(revenue, payout float64) *float64 {
	if payout == 0 {
		return nil
	}
	v := Round2((revenue - payout) / payout)
	return &v
}

// ROAS returns revenue/payout rounded to 2 decimals, with the same
// nil-on-zero-payout policy as ROI.
func ROAS(revenue, payout float64) *float64 {
	if payout == 0 {
		return nil
	}
	v := Round2(revenue / payout)
	return &v
}

// IncrementalROAS is numerically identical to ROAS. The system has no
// control-group or baseline model; this is a documented simplification of the
// source data, kept explicit so nobody silently adds one.
func IncrementalROAS(revenue, payout float64) *float64 {
	return ROAS(revenue, payout)
}
