package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_DefaultWeekly(t *testing.T) {
	c, err := newScheduler("", func() {})
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 1)

	// 2026-10-19 is a Monday; the next run is Sunday 02:00.
	from := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	want := time.Date(2026, 10, 25, 2, 0, 0, 0, time.Local)
	assert.True(t, want.Equal(entries[0].Schedule.Next(from)))
}

func TestNewScheduler_TimeZonePrefix(t *testing.T) {
	c, err := newScheduler("CRON_TZ=UTC 30 3 * * *", func() {})
	require.NoError(t, err)

	from := time.Date(2026, 10, 19, 4, 0, 0, 0, time.UTC)
	want := time.Date(2026, 10, 20, 3, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(c.Entries()[0].Schedule.Next(from)))
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	_, err := newScheduler("every sunday", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every sunday")

	_, err = newScheduler("0 0 2 * * 0", func() {})
	assert.Error(t, err, "six fields are rejected")
}
