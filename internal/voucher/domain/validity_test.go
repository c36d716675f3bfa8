package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExpiryFixedUnits(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		value int
		unit  ValidityUnit
		want  time.Duration
	}{
		{"minutes", 30, UnitMinutes, 30 * time.Minute},
		{"hours", 2, UnitHours, 7_200_000 * time.Millisecond},
		{"days", 7, UnitDays, 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeExpiry(start, tc.value, tc.unit, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Sub(start))
		})
	}
}

func TestComputeExpiryMonthsClampsDay(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	cases := []struct {
		name  string
		start time.Time
		value int
		want  time.Time
	}{
		{
			name:  "jan 31 leap year",
			start: time.Date(2024, 1, 31, 8, 0, 0, 0, jakarta),
			value: 1,
			want:  time.Date(2024, 2, 29, 8, 0, 0, 0, jakarta),
		},
		{
			name:  "jan 31 common year",
			start: time.Date(2023, 1, 31, 8, 0, 0, 0, jakarta),
			value: 1,
			want:  time.Date(2023, 2, 28, 8, 0, 0, 0, jakarta),
		},
		{
			name:  "year rollover",
			start: time.Date(2023, 11, 30, 23, 0, 0, 0, jakarta),
			value: 3,
			want:  time.Date(2024, 2, 29, 23, 0, 0, 0, jakarta),
		},
		{
			name:  "plain",
			start: time.Date(2024, 3, 15, 12, 30, 0, 0, jakarta),
			value: 1,
			want:  time.Date(2024, 4, 15, 12, 30, 0, 0, jakarta),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeExpiry(tc.start, tc.value, UnitMonths, jakarta)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestComputeExpiryMonthsUsesBusinessCalendar(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	// 2024-01-31 20:00 UTC is already Feb 1 in Jakarta.
	start := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)

	got, err := ComputeExpiry(start, 1, UnitMonths, jakarta)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC), got)
}

func TestComputeExpiryRejectsBadInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := ComputeExpiry(start, 0, UnitHours, time.UTC)
	assert.True(t, errors.Is(err, ErrInvalidValidity))

	_, err = ComputeExpiry(start, 1, ValidityUnit("WEEKS"), time.UTC)
	assert.True(t, errors.Is(err, ErrUnknownUnit))
}
