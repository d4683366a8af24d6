package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"sunbar/internal/ephemeris"
	appLog "sunbar/internal/log"
	"sunbar/internal/model"
)

// MaxDays caps how far ahead Upcoming and Export will look.
const MaxDays = 366

// Day is the solar events of one calendar date.
type Day struct {
	Date   time.Time         `json:"date"`
	Events model.SolarEvents `json:"events"`
}

// Dates returns days consecutive local midnights starting with the calendar
// date of from, in from's location. The sequence is a DAILY recurrence so
// that DST changes keep the wall-clock midnight.
func Dates(from time.Time, days int) ([]time.Time, error) {
	if days <= 0 || days > MaxDays {
		return nil, fmt.Errorf("days must be within 1..%d, got %d", MaxDays, days)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days,
		Dtstart: ephemeris.DayOffset(from, 0),
	})
	if err != nil {
		return nil, err
	}
	return r.All(), nil
}

// Upcoming computes the solar events for days dates starting at from.
//
// Dates for which the ephemeris is unavailable (polar day/night) are skipped
// and logged. If every date is unavailable the joined error is returned; any
// other provider error aborts immediately.
func Upcoming(p ephemeris.Provider, obs model.Observer, from time.Time, days int, logger *appLog.Logger) ([]Day, error) {
	dates, err := Dates(from, days)
	if err != nil {
		return nil, err
	}

	out := make([]Day, 0, len(dates))
	skipped := make([]error, 0)

	for _, d := range dates {
		ev, err := p.Events(obs, d)
		if err != nil {
			if !errors.Is(err, model.ErrEphemerisUnavailable) {
				return nil, err
			}
			logger.Warn("skipping day without sunrise/sunset", "date", d.Format(time.DateOnly))
			skipped = append(skipped, err)
			continue
		}
		out = append(out, Day{Date: d, Events: ev})
	}

	if len(out) == 0 && len(skipped) > 0 {
		return nil, errors.Join(skipped...)
	}
	return out, nil
}
