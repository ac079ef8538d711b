package overlay

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const bg5x5 = "AAAAA\nAAAAA\nAAAAA\nAAAAA\nAAAAA"

func TestPlace_Center(t *testing.T) {
	got := Place(Config{Width: 5, Height: 3, Position: Center}, "XX\nXX", "AAAAA\nAAAAA\nAAAAA")

	require.Equal(t, []string{"AXXAA", "AXXAA", "AAAAA"}, strings.Split(got, "\n"))
}

func TestPlace_TopAndBottom(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"top", Config{Width: 5, Height: 5, Position: Top}, []string{"AXXAA", "AAAAA", "AAAAA", "AAAAA", "AAAAA"}},
		{"top padded", Config{Width: 5, Height: 5, Position: Top, PadY: 1}, []string{"AAAAA", "AXXAA", "AAAAA", "AAAAA", "AAAAA"}},
		{"bottom", Config{Width: 5, Height: 5, Position: Bottom}, []string{"AAAAA", "AAAAA", "AAAAA", "AAAAA", "AXXAA"}},
		{"bottom padded", Config{Width: 5, Height: 5, Position: Bottom, PadY: 1}, []string{"AAAAA", "AAAAA", "AAAAA", "AXXAA", "AAAAA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, strings.Split(Place(tt.cfg, "XX", bg5x5), "\n"))
		})
	}
}

func TestPlace_PadsShortBackground(t *testing.T) {
	got := strings.Split(Place(Config{Width: 4, Height: 3, Position: Bottom}, "XX", "AB"), "\n")

	require.Len(t, got, 3)
	require.Equal(t, "AB", got[0])
	require.Equal(t, " XX ", got[2])
}

func TestPlace_OversizedForeground(t *testing.T) {
	got := strings.Split(Place(Config{Width: 3, Height: 2, Position: Center}, "XXXXX\nXXXXX\nXXXXX", "AAA\nAAA"), "\n")

	require.Equal(t, []string{"XXXXX", "XXXXX"}, got)
}

func TestPlace_KeepsBackgroundStyling(t *testing.T) {
	bg := "\x1b[31mAAAAA\x1b[0m"
	got := Place(Config{Width: 5, Height: 1, Position: Center}, "X", bg)

	require.Contains(t, got, "X")
	require.Contains(t, got, "\x1b[31m")
}
