package periods

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNumeralOf(t *testing.T) {
	cases := map[string]int{
		"January 2021":  1,
		"July 2020":     7,
		"december 1999": 12,
		"  MAY   2022 ": 5,
	}
	for label, want := range cases {
		got, err := NumeralOf(label)
		require.NoError(t, err, label)
		require.Equal(t, want, got, label)
	}
}

func TestNumeralOfRejectsUnknownMonth(t *testing.T) {
	for _, label := range []string{"", "Jul 2020", "Smarch 2020", "2020 July"} {
		_, err := NumeralOf(label)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), label)
		require.Equal(t, label, parseErr.Label)
	}
}

func TestParseBounds(t *testing.T) {
	p, err := Parse("December 2020")
	require.NoError(t, err)
	require.Equal(t, "December 2020", p.Label)
	require.Equal(t, time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC), p.Start)
	require.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), p.End)
	require.True(t, p.Contains(time.Date(2020, 12, 31, 23, 59, 0, 0, time.UTC)))
	require.False(t, p.Contains(p.End))
}

func TestParseRequiresYear(t *testing.T) {
	for _, label := range []string{"July", "July twenty", "July 2020 extra"} {
		_, err := Parse(label)
		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr), label)
	}
}

func TestLabelAndNormalize(t *testing.T) {
	require.Equal(t, "July 2020", Label(time.Date(2020, 7, 15, 10, 0, 0, 0, time.UTC)))
	require.Equal(t, "July 2020", Normalize("  july   2020"))
	require.Equal(t, "July 2020", Normalize("JULY 2020"))
}
