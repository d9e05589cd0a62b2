package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"

	"github.com/puzpuzpuz/xsync/v4"
)

// StaticCalendar resolves tenant timezones from configuration. Loaded locations are
// cached because time.LoadLocation reads the zoneinfo database on every call.
type StaticCalendar struct {
	defaultZone string
	zones       map[string]string
	locations   *xsync.Map[string, *time.Location]
}

// NewStaticCalendar validates every configured zone up front so a typo fails at
// startup instead of on the first request of that tenant.
func NewStaticCalendar(defaultZone string, tenantZones map[string]string) (*StaticCalendar, error) {
	defaultZone = strings.TrimSpace(defaultZone)
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	c := &StaticCalendar{
		defaultZone: defaultZone,
		zones:       make(map[string]string, len(tenantZones)),
		locations:   xsync.NewMap[string, *time.Location](),
	}
	if _, err := c.load(defaultZone); err != nil {
		return nil, err
	}
	for tenantID, zone := range tenantZones {
		tenantID = strings.TrimSpace(tenantID)
		zone = strings.TrimSpace(zone)
		if tenantID == "" || zone == "" {
			continue
		}
		if _, err := c.load(zone); err != nil {
			return nil, err
		}
		c.zones[tenantID] = zone
	}
	return c, nil
}

func (c *StaticCalendar) Location(_ context.Context, tenantID string) (*time.Location, error) {
	zone, ok := c.zones[strings.TrimSpace(tenantID)]
	if !ok {
		zone = c.defaultZone
	}
	return c.load(zone)
}

func (c *StaticCalendar) load(zone string) (*time.Location, error) {
	if loc, ok := c.locations.Load(zone); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnknownTimezone, zone)
	}
	c.locations.Store(zone, loc)
	return loc, nil
}

// ParseTenantZones reads "tenant=Area/City" pairs separated by commas.
func ParseTenantZones(raw string) (map[string]string, error) {
	zones := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tenantID, zone, ok := strings.Cut(pair, "=")
		tenantID = strings.TrimSpace(tenantID)
		zone = strings.TrimSpace(zone)
		if !ok || tenantID == "" || zone == "" {
			return nil, fmt.Errorf("invalid tenant timezone entry %q", pair)
		}
		zones[tenantID] = zone
	}
	return zones, nil
}
