package valueobjects

import (
	"fmt"
	"strings"

	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"
)

// NormalizeRoute folds a route name to its canonical form: trimmed, inner
// whitespace collapsed to one space, lower-cased.
func NormalizeRoute(route string) string {
	return strings.ToLower(strings.Join(strings.Fields(route), " "))
}

// LeaseKey identifies the single lease row allowed per tenant, day and route.
type LeaseKey struct {
	TenantID string
	Day      string
	Route    string
}

func NewLeaseKey(tenantID string, day string, route string) (LeaseKey, error) {
	tenantID = strings.TrimSpace(tenantID)
	route = NormalizeRoute(route)
	day = strings.TrimSpace(day)
	if tenantID == "" || route == "" || !ValidDay(day) {
		return LeaseKey{}, domainerrors.ErrInvalidLeaseRequest
	}
	return LeaseKey{TenantID: tenantID, Day: day, Route: route}, nil
}

// String is also used as the event partition key.
func (k LeaseKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.Day, k.Route)
}
