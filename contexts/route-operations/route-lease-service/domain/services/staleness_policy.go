package services

import "time"

// DefaultStaleAfter is the heartbeat age after which a holder counts as gone.
const DefaultStaleAfter = 10 * time.Minute

// IsStale reports whether a lease last refreshed at lastHeartbeat is abandoned at now.
// A lease that has never recorded a heartbeat is never stale.
func IsStale(lastHeartbeat *time.Time, now time.Time, threshold time.Duration) bool {
	if lastHeartbeat == nil {
		return false
	}
	return now.Sub(*lastHeartbeat) > threshold
}

// StalenessPolicy binds IsStale to a configured threshold.
type StalenessPolicy struct {
	Threshold time.Duration
}

func (p StalenessPolicy) IsStale(lastHeartbeat *time.Time, now time.Time) bool {
	return IsStale(lastHeartbeat, now, p.threshold())
}

func (p StalenessPolicy) threshold() time.Duration {
	if p.Threshold <= 0 {
		return DefaultStaleAfter
	}
	return p.Threshold
}
