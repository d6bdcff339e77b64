package calendar

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLayouts(t *testing.T) {
	want := DayKey{2025, time.March, 5}
	inputs := []string{
		"2025-03-05",
		"2025-03-05T09:00",
		"2025-03-05T09:00:00",
		"2025-03-05T09:00:00.123",
		"2025-03-05 09:00:00",
		"2025-03-05T09:00:00Z",
		"2025-03-05T09:00:00.5+01:00",
		"2025-03-05T09:00+01:00",
		"  2025-03-05T23:59:59  ",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := Normalize(in, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestNormalizeSameDayIgnoresTimeOfDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	a, err := Normalize("2025-03-05T00:00:00+01:00", berlin)
	require.NoError(t, err)
	b, err := Normalize("2025-03-05T22:59:00Z", berlin)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2025-13-01", "05.03.2025"} {
		_, err := Normalize(in, time.UTC)
		assert.True(t, errors.Is(err, ErrInvalidTimestamp), "input %q", in)
	}
}

func TestNormalizeNilLocationIsUTC(t *testing.T) {
	got, err := Normalize("2025-03-05T23:30:00-02:00", nil)
	require.NoError(t, err)
	assert.Equal(t, DayKey{2025, time.March, 6}, got)
}

func TestDayKeyText(t *testing.T) {
	k := DayKey{2025, time.January, 7}
	assert.Equal(t, "2025-01-07", k.String())

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[DayKey]int{k: 1}))
	assert.Equal(t, `{"2025-01-07":1}`, strings.TrimSpace(buf.String()))

	parsed, err := ParseDayKey("2025-01-07")
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParseDayKey("2025-1-7x")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestDayKeyArithmetic(t *testing.T) {
	k := DayKey{2024, time.February, 28}
	assert.Equal(t, DayKey{2024, time.February, 29}, k.AddDays(1))
	assert.Equal(t, DayKey{2024, time.March, 1}, k.AddDays(2))
	assert.Equal(t, DayKey{2023, time.December, 31}, DayKey{2024, time.January, 1}.AddDays(-1))
	assert.True(t, k.Before(k.AddDays(1)))
	assert.False(t, k.Before(k))
}
