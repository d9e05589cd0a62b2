package calendar

import (
	"context"
	"testing"

	domainerrors "routeops/contexts/route-operations/route-lease-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCalendarResolvesTenantZones(t *testing.T) {
	cal, err := NewStaticCalendar("UTC", map[string]string{
		"tenant-ny": "America/New_York",
		" ":         "Europe/Paris",
	})
	require.NoError(t, err)

	loc, err := cal.Location(context.Background(), "tenant-ny")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	loc, err = cal.Location(context.Background(), "tenant-unknown")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestStaticCalendarRejectsUnknownZone(t *testing.T) {
	_, err := NewStaticCalendar("UTC", map[string]string{"tenant-1": "Mars/Olympus_Mons"})
	require.ErrorIs(t, err, domainerrors.ErrUnknownTimezone)

	_, err = NewStaticCalendar("Nowhere/Else", nil)
	require.ErrorIs(t, err, domainerrors.ErrUnknownTimezone)
}

func TestStaticCalendarDefaultsToUTC(t *testing.T) {
	cal, err := NewStaticCalendar("", nil)
	require.NoError(t, err)

	loc, err := cal.Location(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestParseTenantZones(t *testing.T) {
	zones, err := ParseTenantZones(" tenant-a=America/Chicago , tenant-b=Europe/Berlin,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"tenant-a": "America/Chicago",
		"tenant-b": "Europe/Berlin",
	}, zones)

	empty, err := ParseTenantZones("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseTenantZones("tenant-a")
	require.Error(t, err)
}
