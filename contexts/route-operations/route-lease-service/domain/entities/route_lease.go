package entities

import (
	"time"

	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
)

type LeaseStatus string

const (
	LeaseStatusFree      LeaseStatus = "free"
	LeaseStatusHeld      LeaseStatus = "held"
	LeaseStatusCompleted LeaseStatus = "completed"
)

// HolderInterval is one ownership span in a lease history.
// End stays nil while that holder is current.
type HolderInterval struct {
	HolderID string     `json:"holder_id"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
}

// RouteLease is the ownership record for one tenant, day and route.
// An empty HolderID means no holder; it is empty iff Status is free.
type RouteLease struct {
	LeaseID        string
	TenantID       string
	Day            string
	Route          string
	HolderID       string
	HolderName     string
	LastHeartbeat  *time.Time
	Status         LeaseStatus
	History        []HolderInterval
	Version        int64
	OverrideBy     string
	OverrideReason string
	OverriddenAt   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewFreeLease builds the lazily created row for a key that has never been claimed.
// Version 0 marks a lease that is not persisted yet.
func NewFreeLease(leaseID string, key valueobjects.LeaseKey, now time.Time) (RouteLease, error) {
	if leaseID == "" || key.TenantID == "" || key.Route == "" || key.Day == "" {
		return RouteLease{}, domainerrors.ErrInvalidLeaseRequest
	}
	return RouteLease{
		LeaseID:   leaseID,
		TenantID:  key.TenantID,
		Day:       key.Day,
		Route:     key.Route,
		Status:    LeaseStatusFree,
		History:   []HolderInterval{},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

func (l RouteLease) Key() valueobjects.LeaseKey {
	return valueobjects.LeaseKey{TenantID: l.TenantID, Day: l.Day, Route: l.Route}
}

func (l RouteLease) HasHolder() bool {
	return l.HolderID != ""
}

func (l RouteLease) IsPersisted() bool {
	return l.Version > 0
}

// HeldBy reports whether agentID is the current holder of a held lease.
func (l RouteLease) HeldBy(agentID string) bool {
	return agentID != "" && l.Status == LeaseStatusHeld && l.HolderID == agentID
}

// CurrentInterval returns the open history entry, if any.
func (l RouteLease) CurrentInterval() (HolderInterval, bool) {
	if len(l.History) == 0 {
		return HolderInterval{}, false
	}
	last := l.History[len(l.History)-1]
	if last.End != nil {
		return HolderInterval{}, false
	}
	return last, true
}

// LastClosedHolderID returns the holder of the most recently closed history
// interval, or "" when no holder has left the lease yet.
func (l RouteLease) LastClosedHolderID() string {
	for i := len(l.History) - 1; i >= 0; i-- {
		if l.History[i].End != nil {
			return l.History[i].HolderID
		}
	}
	return ""
}

// Clone returns a copy that shares no mutable state with l.
func (l RouteLease) Clone() RouteLease {
	out := l
	out.History = make([]HolderInterval, len(l.History))
	for i, interval := range l.History {
		out.History[i] = interval
		if interval.End != nil {
			end := *interval.End
			out.History[i].End = &end
		}
	}
	if l.LastHeartbeat != nil {
		hb := *l.LastHeartbeat
		out.LastHeartbeat = &hb
	}
	if l.OverriddenAt != nil {
		at := *l.OverriddenAt
		out.OverriddenAt = &at
	}
	return out
}

// Assign hands the lease to agentID and opens a new history interval.
func (l *RouteLease) Assign(agentID string, agentName string, now time.Time) {
	at := now.UTC()
	l.HolderID = agentID
	l.HolderName = agentName
	l.Status = LeaseStatusHeld
	l.LastHeartbeat = &at
	l.History = append(l.History, HolderInterval{HolderID: agentID, Start: at})
	l.UpdatedAt = at
}

// Touch refreshes the liveness timestamp of the current holder.
func (l *RouteLease) Touch(now time.Time) {
	at := now.UTC()
	l.LastHeartbeat = &at
	l.UpdatedAt = at
}

// Vacate closes the open interval and clears the holder, leaving the lease free.
// It returns the holder that was removed.
func (l *RouteLease) Vacate(now time.Time) string {
	previous := l.HolderID
	l.CloseOpenInterval(now)
	l.HolderID = ""
	l.HolderName = ""
	l.LastHeartbeat = nil
	l.Status = LeaseStatusFree
	l.UpdatedAt = now.UTC()
	return previous
}

// CloseOpenInterval stamps End on the last history entry when it is still open.
func (l *RouteLease) CloseOpenInterval(now time.Time) {
	if len(l.History) == 0 {
		return
	}
	last := &l.History[len(l.History)-1]
	if last.End != nil {
		return
	}
	end := now.UTC()
	last.End = &end
}

// CheckInvariant verifies holder/status consistency before a write.
func (l RouteLease) CheckInvariant() error {
	if (l.HolderID == "") != (l.Status == LeaseStatusFree) {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	switch l.Status {
	case LeaseStatusFree, LeaseStatusHeld, LeaseStatusCompleted:
		return nil
	default:
		return domainerrors.ErrRepositoryInvariantBroke
	}
}
