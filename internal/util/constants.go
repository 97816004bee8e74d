package util

import "bimbel_asn_backend/internal/model"

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// TierLimit bounds what a subscription tier may do per session and per day.
// MaxSessionsPerDay of 0 means unlimited.
type TierLimit struct {
	MaxQuestionsPerSession int
	MaxSessionsPerDay      int
	Explanation            bool
	Simulation             bool
}

var TierLimits = map[model.Tier]TierLimit{
	model.TierFree:    {MaxQuestionsPerSession: 20, MaxSessionsPerDay: 3},
	model.TierBasic:   {MaxQuestionsPerSession: 50, MaxSessionsPerDay: 10, Explanation: true},
	model.TierPremium: {MaxQuestionsPerSession: 250, MaxSessionsPerDay: 0, Explanation: true, Simulation: true},
}

// LimitForTier returns the limits for a tier, defaulting to free.
func LimitForTier(tier model.Tier) TierLimit {
	if l, ok := TierLimits[tier]; ok {
		return l
	}
	return TierLimits[model.TierFree]
}
