package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	assert.True(t, ok)
	assert.Equal(t, s, got.Format(time.RFC3339))

	got, ok = ParseTime("2024-10-10T12:10:10.5+02:00")
	assert.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 10, got.Hour())
}

func TestParseTimeUnix(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	got, ok := ParseTime(strconv.FormatInt(want.Unix(), 10))
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	got, ok = ParseTime(strconv.FormatInt(want.UnixMilli(), 10))
	assert.True(t, ok)
	assert.True(t, want.Equal(got))
}

func TestParseTimeInvalid(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5", "0"} {
		_, ok := ParseTime(s)
		assert.False(t, ok, s)
	}
}

func TestParseDefaults(t *testing.T) {
	assert.True(t, ParseBoolDefault("true", false))
	assert.False(t, ParseBoolDefault("", false))
	assert.True(t, ParseBoolDefault("nope", true))
}
