package bar

import (
	"fmt"
	"math"
	"strings"

	appLog "sunbar/internal/log"
	"sunbar/internal/model"
)

const (
	// DefaultLength is the number of content columns of each row.
	DefaultLength = 20

	// MinLength leaves room for the day label and the sunset caret.
	MinLength = 3

	dayLabelWidth = 2
)

// Renderer turns a Window into the two aligned rows of a Bar.
type Renderer struct {
	length int
	log    *appLog.Logger
}

// NewRenderer returns a Renderer producing rows of length content columns
// plus the boundary glyph. A length of zero or less selects DefaultLength.
func NewRenderer(length int, logger *appLog.Logger) *Renderer {
	if length <= 0 {
		length = DefaultLength
	}
	return &Renderer{length: length, log: logger}
}

func (r *Renderer) Length() int {
	return r.length
}

// Render produces the progress and marker rows for w. Both rows are exactly
// Length()+1 runes wide.
//
// Errors wrap model.ErrConfiguration when w violates its invariants or the
// length is below MinLength, and model.ErrRendering when the leading edge
// lands exactly on a partial glyph boundary.
func (r *Renderer) Render(w model.Window) (model.Bar, error) {
	if r.length < MinLength {
		return model.Bar{}, fmt.Errorf("%w: bar length %d below minimum %d", model.ErrConfiguration, r.length, MinLength)
	}
	if err := w.Validate(); err != nil {
		return model.Bar{}, fmt.Errorf("render: %w", err)
	}

	elapsed := w.ElapsedFraction()
	sunset := w.SunsetFraction()

	r.log.Debug("render",
		"start", w.Start,
		"now", w.Now,
		"sunset", w.SunsetMark,
		"end", w.End,
		"length", r.length,
		"elapsed", elapsed,
		"sunset_fraction", sunset,
	)

	progress, err := r.progressRow(elapsed)
	if err != nil {
		return model.Bar{}, err
	}

	return model.Bar{
		Progress: progress,
		Marker:   r.markerRow(w.Start.Day(), sunset),
	}, nil
}

func (r *Renderer) progressRow(elapsed float64) (string, error) {
	chars := elapsed * float64(r.length)
	whole := math.Floor(chars)
	n := int(whole)
	if n < 0 || n >= r.length {
		return "", fmt.Errorf("%w: leading edge %v outside bar of length %d", model.ErrRendering, chars, r.length)
	}

	g, err := partialGlyph(chars - whole)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(string(fullBlock), n))
	b.WriteRune(g)
	b.WriteString(strings.Repeat(" ", r.length-n-1))
	b.WriteRune(boundary)
	return b.String(), nil
}

// markerRow writes the two-digit day, then the caret at the sunset column.
// A caret column inside the day label is pushed right past it.
func (r *Renderer) markerRow(day int, sunset float64) string {
	col := int(math.Floor(sunset * float64(r.length)))
	if col < dayLabelWidth {
		col = dayLabelWidth
	}
	if col > r.length-1 {
		col = r.length - 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%02d", day)
	b.WriteString(strings.Repeat(" ", col-dayLabelWidth))
	b.WriteRune(caret)
	b.WriteString(strings.Repeat(" ", r.length-col-1))
	b.WriteRune(boundary)
	return b.String()
}
