package models

// Quota is the shared daily allowance for anonymous link creation.
type Quota struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// NewQuota computes remaining as max(0, limit-used).
func NewQuota(used, limit int64) Quota {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Quota{Used: used, Limit: limit, Remaining: remaining}
}
