package bar

import (
	"fmt"

	"sunbar/internal/model"
)

const (
	fullBlock = '█'
	boundary  = '|'
	caret     = '^'
)

// partialGlyphs runs from emptiest to fullest. Level i covers the open
// interval (i/9, (i+1)/9).
var partialGlyphs = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// partialGlyph quantizes frac in [0, 1) into one of the partial glyphs.
// Values on a bin boundary (0, 1/9, 2/9, ...) match no bin and wrap
// model.ErrRendering.
func partialGlyph(frac float64) (rune, error) {
	n := float64(len(partialGlyphs))
	for i, g := range partialGlyphs {
		lo := float64(i) / n
		hi := float64(i+1) / n
		if lo < frac && frac < hi {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: no partial glyph for fraction %v", model.ErrRendering, frac)
}
