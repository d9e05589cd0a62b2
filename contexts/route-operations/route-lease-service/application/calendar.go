package application

import (
	"context"
	"strings"
	"time"

	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
	"routeops/contexts/route-operations/route-lease-service/domain/valueobjects"
	"routeops/contexts/route-operations/route-lease-service/ports"
)

// ResolveDay returns day when given, otherwise the tenant-local day containing now.
// A nil calendar falls back to UTC.
func ResolveDay(
	ctx context.Context,
	calendar ports.TenantCalendar,
	tenantID string,
	day string,
	now time.Time,
) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", domainerrors.ErrInvalidLeaseRequest
	}
	if day = strings.TrimSpace(day); day != "" {
		if !valueobjects.ValidDay(day) {
			return "", domainerrors.ErrInvalidLeaseRequest
		}
		return day, nil
	}
	loc := time.UTC
	if calendar != nil {
		resolved, err := calendar.Location(ctx, tenantID)
		if err != nil {
			return "", err
		}
		loc = resolved
	}
	return valueobjects.DayKey(now, loc), nil
}
