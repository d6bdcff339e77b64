package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratskal/internal/model"
)

func TestNavigatorWraparound(t *testing.T) {
	dec := Cursor{Year: 2025, Month: time.December}
	jan := Cursor{Year: 2026, Month: time.January}

	assert.Equal(t, jan, dec.Next())
	assert.Equal(t, dec, jan.Prev())
	assert.Equal(t, Cursor{2025, time.June}, Cursor{2025, time.May}.Next())
	assert.Equal(t, Cursor{2025, time.April}, Cursor{2025, time.May}.Prev())
}

func TestNavigatorRoundTrip(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		c := Cursor{Year: 2025, Month: m}
		assert.Equal(t, c, c.Next().Prev())
		assert.Equal(t, c, c.Prev().Next())
	}
}

func TestToday(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// New Year's Eve 23:30 UTC is already January in Berlin.
	now := time.Date(2025, time.December, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, Cursor{2025, time.December}, Today(now, time.UTC))
	assert.Equal(t, Cursor{2026, time.January}, Today(now, berlin))
}

func TestCursorRange(t *testing.T) {
	first, last := Cursor{2024, time.February}.Range(time.UTC)
	assert.Equal(t, "2024-02-01", first.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", last.Format("2006-01-02"))
}

func TestParseCursor(t *testing.T) {
	c, err := ParseCursor("2025-01")
	require.NoError(t, err)
	assert.Equal(t, Cursor{2025, time.January}, c)
	assert.Equal(t, "2025-01", c.String())

	for _, bad := range []string{"", "2025-13", "2025/01", "January"} {
		_, err := ParseCursor(bad)
		assert.Error(t, err, bad)
	}
}

func TestWriteText(t *testing.T) {
	meetings := []model.Meeting{{ID: "rat", Start: "2025-08-14T17:00"}}
	g := Build(Cursor{2025, time.August}, Bucket(meetings, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, g))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 2+5)
	assert.Equal(t, "August 2025", lines[0])
	assert.Contains(t, lines[1], "Mo")
	assert.Contains(t, lines[2], "(28)")
	assert.Contains(t, buf.String(), "14*1")
	assert.Contains(t, lines[6], "31")
}
