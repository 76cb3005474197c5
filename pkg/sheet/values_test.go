package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05T10:30:00+05:30", time.Date(2024, 3, 5, 5, 0, 0, 0, time.UTC)},
		{"2024-03-05T10:30:00", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)},
		{"2024-03-05 10:30:00.123456", time.Date(2024, 3, 5, 10, 30, 0, 123456000, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"12/31/2024 18:45:00", time.Date(2024, 12, 31, 18, 45, 0, 0, time.UTC)},
		{" 45356 ", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		if !ok {
			t.Fatalf("ParseTime(%q) failed", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTime(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "   ", "yesterday", "2024-13-45", "31/12/2024"} {
		if _, ok := ParseTime(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestParseNumbers(t *testing.T) {
	f, ok := ParseNumber(" 150.5 ")
	assert.True(t, ok)
	assert.Equal(t, 150.5, f)

	for _, bad := range []string{"", "abc", "NaN", "Inf"} {
		_, ok := ParseNumber(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, 0.0, NumberOrZero("n/a"))

	n, ok := ParseInt("2.0")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	_, ok = ParseInt("2.5")
	assert.False(t, ok)

	d, ok := ParseDecimal("199.99")
	assert.True(t, ok)
	assert.Equal(t, "199.99", d.String())
	_, ok = ParseDecimal("ten")
	assert.False(t, ok)
}

func TestSameUserTrims(t *testing.T) {
	assert.True(t, SameUser(" agent-1 ", "agent-1"))
	assert.False(t, SameUser("agent-1", "Agent-1"))
	assert.False(t, SameUser("", "  "))
	assert.False(t, SameUser("   ", ""))
}
