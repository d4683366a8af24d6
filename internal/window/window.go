package window

import (
	"fmt"
	"time"

	"sunbar/internal/ephemeris"
	appLog "sunbar/internal/log"
	"sunbar/internal/model"
)

// AdjacentOffset tells the caller which neighbouring day it must fetch
// before calling Select: +1 (tomorrow) once today's sunrise has happened,
// -1 (yesterday) before it.
func AdjacentOffset(now time.Time, today model.SolarEvents) int {
	if now.Before(today.Sunrise) {
		return -1
	}
	return 1
}

// Select picks the sunrise-to-next-sunrise window containing now.
//
// adjacent must be tomorrow's events when now >= today.Sunrise and
// yesterday's otherwise (see AdjacentOffset). The normalized window is
// validated; a violation wraps model.ErrConfiguration.
func Select(now time.Time, today, adjacent model.SolarEvents) (model.Window, error) {
	var w model.Window
	if now.Before(today.Sunrise) {
		// Still in the window that began yesterday.
		w = model.Window{
			Start:      adjacent.Sunrise,
			SunsetMark: adjacent.Sunset,
			End:        today.Sunrise,
			Now:        now,
		}
	} else {
		w = model.Window{
			Start:      today.Sunrise,
			SunsetMark: today.Sunset,
			End:        adjacent.Sunrise,
			Now:        now,
		}
	}

	if err := w.Validate(); err != nil {
		return model.Window{}, fmt.Errorf("select window: %w", err)
	}
	return w, nil
}

// Resolver fetches today's events, then exactly one neighbour, and selects
// the active window.
type Resolver struct {
	provider ephemeris.Provider
	log      *appLog.Logger
}

func NewResolver(p ephemeris.Provider, logger *appLog.Logger) *Resolver {
	return &Resolver{provider: p, log: logger}
}

// Resolve returns the window containing now for obs. Calendar days are taken
// in now's location.
func (r *Resolver) Resolve(obs model.Observer, now time.Time) (model.Window, error) {
	today, err := r.provider.Events(obs, ephemeris.DayOffset(now, 0))
	if err != nil {
		return model.Window{}, err
	}

	offset := AdjacentOffset(now, today)
	adjacent, err := r.provider.Events(obs, ephemeris.DayOffset(now, offset))
	if err != nil {
		return model.Window{}, err
	}

	w, err := Select(now, today, adjacent)
	if err != nil {
		r.log.Error("window selection failed", err,
			"now", now, "today_sunrise", today.Sunrise, "adjacent_sunrise", adjacent.Sunrise)
		return model.Window{}, err
	}

	r.log.Debug("window selected",
		"offset", offset,
		"start", w.Start,
		"sunset", w.SunsetMark,
		"end", w.End,
		"now", w.Now,
	)
	return w, nil
}
