package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Error kinds surfaced by the ephemeris, window and bar packages. Callers
// match them with errors.Is; none of them is retried.
var (
	// ErrEphemerisUnavailable means no sunrise/sunset exists for the
	// observer on the requested date (polar day or night).
	ErrEphemerisUnavailable = errors.New("ephemeris unavailable")

	// ErrConfiguration means a window invariant does not hold.
	ErrConfiguration = errors.New("configuration error")

	// ErrRendering means the partial glyph lookup found no bin.
	ErrRendering = errors.New("rendering error")
)

// Observer is a geographic point for which solar events are computed.
type Observer struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	// Elevation is metres above sea level.
	Elevation float64 `yaml:"elevation" json:"elevation"`
}

func (o Observer) Validate() error {
	for _, v := range []float64{o.Latitude, o.Longitude, o.Elevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("observer: non-finite coordinate %v", v)
		}
	}
	if o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("observer: latitude %v out of range [-90, 90]", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("observer: longitude %v out of range [-180, 180]", o.Longitude)
	}
	return nil
}

// SolarEvents holds the five daily sun-position instants for one observer
// and one calendar date.
type SolarEvents struct {
	Dawn    time.Time `json:"dawn"`
	Sunrise time.Time `json:"sunrise"`
	Noon    time.Time `json:"noon"`
	Sunset  time.Time `json:"sunset"`
	Dusk    time.Time `json:"dusk"`
}

// Validate checks dawn < sunrise < noon < sunset < dusk.
func (e SolarEvents) Validate() error {
	seq := []time.Time{e.Dawn, e.Sunrise, e.Noon, e.Sunset, e.Dusk}
	for i, t := range seq {
		if t.IsZero() {
			return fmt.Errorf("solar events: missing instant #%d", i)
		}
		if i > 0 && !seq[i-1].Before(t) {
			return fmt.Errorf("solar events: instants out of order at #%d", i)
		}
	}
	return nil
}

// In converts every instant into loc.
func (e SolarEvents) In(loc *time.Location) SolarEvents {
	return SolarEvents{
		Dawn:    e.Dawn.In(loc),
		Sunrise: e.Sunrise.In(loc),
		Noon:    e.Noon.In(loc),
		Sunset:  e.Sunset.In(loc),
		Dusk:    e.Dusk.In(loc),
	}
}

// Window is the sunrise-to-next-sunrise span that contains Now.
type Window struct {
	Start      time.Time
	SunsetMark time.Time
	End        time.Time
	Now        time.Time
}

// Validate enforces Start < Now < End and Start < SunsetMark < End.
// Violations wrap ErrConfiguration.
func (w Window) Validate() error {
	switch {
	case !w.Start.Before(w.Now):
		return fmt.Errorf("%w: window start %s not before now %s", ErrConfiguration,
			w.Start.Format(time.RFC3339), w.Now.Format(time.RFC3339))
	case !w.Start.Before(w.SunsetMark):
		return fmt.Errorf("%w: window start %s not before sunset %s", ErrConfiguration,
			w.Start.Format(time.RFC3339), w.SunsetMark.Format(time.RFC3339))
	case !w.SunsetMark.Before(w.End):
		return fmt.Errorf("%w: sunset %s not before window end %s", ErrConfiguration,
			w.SunsetMark.Format(time.RFC3339), w.End.Format(time.RFC3339))
	case !w.Now.Before(w.End):
		return fmt.Errorf("%w: now %s not before window end %s", ErrConfiguration,
			w.Now.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Span is the full window duration. It is 24h give or take a DST shift.
func (w Window) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// ElapsedFraction is (Now - Start) / Span.
func (w Window) ElapsedFraction() float64 {
	return fraction(w.Now.Sub(w.Start), w.Span())
}

// SunsetFraction is (SunsetMark - Start) / Span.
func (w Window) SunsetFraction() float64 {
	return fraction(w.SunsetMark.Sub(w.Start), w.Span())
}

func fraction(part, whole time.Duration) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// Bar is the two rendered rows: progress above, marker below.
type Bar struct {
	Progress string
	Marker   string
}

func (b Bar) String() string {
	return b.Progress + "\n" + b.Marker
}
