package bar

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunbar/internal/model"
)

var start = time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)

func dayWindow(now time.Time) model.Window {
	return model.Window{
		Start:      start,
		SunsetMark: start.Add(12 * time.Hour),
		End:        start.Add(24 * time.Hour),
		Now:        now,
	}
}

func TestRenderHalfPastNoon(t *testing.T) {
	b, err := NewRenderer(20, nil).Render(dayWindow(start.Add(6*time.Hour + 30*time.Minute)))
	require.NoError(t, err)

	assert.Equal(t, "█████▃"+strings.Repeat(" ", 14)+"|", b.Progress)
	assert.Equal(t, "01"+strings.Repeat(" ", 8)+"^"+strings.Repeat(" ", 9)+"|", b.Marker)
	assert.Equal(t, b.Progress+"\n"+b.Marker, b.String())
}

func TestRenderExactQuarterIsRenderingError(t *testing.T) {
	_, err := NewRenderer(20, nil).Render(dayWindow(start.Add(6 * time.Hour)))
	assert.True(t, errors.Is(err, model.ErrRendering), "got %v", err)
}

func TestRenderUsesActualSpan(t *testing.T) {
	// A 23h window (spring-forward day): 6h in is no longer a boundary.
	w := model.Window{
		Start:      start,
		SunsetMark: start.Add(12 * time.Hour),
		End:        start.Add(23 * time.Hour),
		Now:        start.Add(6 * time.Hour),
	}
	b, err := NewRenderer(20, nil).Render(w)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b.Progress, "█████▁ "), b.Progress)
}

func TestRenderJustAfterStart(t *testing.T) {
	b, err := NewRenderer(20, nil).Render(dayWindow(start.Add(time.Second)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(" ", 20)+"|", b.Progress)
}

func TestRenderJustBeforeEnd(t *testing.T) {
	b, err := NewRenderer(20, nil).Render(dayWindow(start.Add(24*time.Hour - time.Second)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("█", 20)+"|", b.Progress)
}

func TestRenderRowWidths(t *testing.T) {
	for length := MinLength; length <= 48; length++ {
		r := NewRenderer(length, nil)
		for m := 1; m < 24*60; m += 37 {
			b, err := r.Render(dayWindow(start.Add(time.Duration(m) * time.Minute)))
			if errors.Is(err, model.ErrRendering) {
				continue
			}
			require.NoError(t, err, "length=%d minute=%d", length, m)
			assert.Equal(t, length+1, utf8.RuneCountInString(b.Progress), "length=%d minute=%d", length, m)
			assert.Equal(t, length+1, utf8.RuneCountInString(b.Marker), "length=%d minute=%d", length, m)
		}
	}
}

func TestRenderMonotonic(t *testing.T) {
	r := NewRenderer(20, nil)
	prev := -1
	for m := 1; m < 24*60; m += 7 {
		b, err := r.Render(dayWindow(start.Add(time.Duration(m) * time.Minute)))
		if errors.Is(err, model.ErrRendering) {
			continue
		}
		require.NoError(t, err)
		whole := leadingBlocks(b.Progress)
		assert.GreaterOrEqual(t, whole, prev, "minute %d", m)
		prev = whole
	}
}

// leadingBlocks counts the full blocks at the start of a progress row,
// including a partial glyph that happens to be full.
func leadingBlocks(row string) int {
	n := 0
	for _, r := range row {
		if r != fullBlock {
			break
		}
		n++
	}
	return n
}

func TestRenderIdempotent(t *testing.T) {
	w := dayWindow(start.Add(9*time.Hour + 13*time.Minute))
	r := NewRenderer(20, nil)

	a, err := r.Render(w)
	require.NoError(t, err)
	b, err := r.Render(w)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderCaretNearStartStaysAfterLabel(t *testing.T) {
	w := model.Window{
		Start:      start,
		SunsetMark: start.Add(30 * time.Minute),
		End:        start.Add(24 * time.Hour),
		Now:        start.Add(10 * time.Minute),
	}
	b, err := NewRenderer(10, nil).Render(w)
	require.NoError(t, err)
	assert.Equal(t, "01^       |", b.Marker)
}

func TestRenderRejectsShortLength(t *testing.T) {
	r := &Renderer{length: 2}
	_, err := r.Render(dayWindow(start.Add(time.Hour + 7*time.Minute)))
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestRenderRejectsInvalidWindow(t *testing.T) {
	_, err := NewRenderer(20, nil).Render(dayWindow(start))
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestNewRendererDefaultLength(t *testing.T) {
	assert.Equal(t, DefaultLength, NewRenderer(0, nil).Length())
}

func TestPartialGlyph(t *testing.T) {
	cases := []struct {
		frac float64
		want rune
	}{
		{0.01, ' '},
		{0.15, '▁'},
		{0.417, '▃'},
		{0.5, '▄'},
		{0.99, '█'},
	}
	for _, c := range cases {
		g, err := partialGlyph(c.frac)
		require.NoError(t, err, c.frac)
		assert.Equal(t, string(c.want), string(g), c.frac)
	}

	for _, bad := range []float64{0, 1.0 / 9, 4.0 / 9, 1} {
		_, err := partialGlyph(bad)
		assert.True(t, errors.Is(err, model.ErrRendering), "fraction %v", bad)
	}
}
