package entitlements

import "strings"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// DefaultFreeQuota seeds FreeRemaining for newly created users when the
// FREE_TIER_QUOTA env key is absent.
const DefaultFreeQuota = 5

// NormalizePlan collapses arbitrary plan strings to a known plan.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	default:
		return PlanFree
	}
}

// IsPaid reports whether a plan bypasses the free-tier quota.
func IsPaid(plan string) bool {
	return PlanRank(NormalizePlan(plan)) > PlanRank(PlanFree)
}

// PlanRank orders plans; a higher rank carries more entitlements.
func PlanRank(plan Plan) int {
	switch plan {
	case PlanPro:
		return 1
	default:
		return 0
	}
}
