package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"

	appLog "sunbar/internal/log"
	"sunbar/internal/model"
)

const (
	// sunriseDepression is the standard solar depression for sunrise and
	// sunset: apparent solar radius plus atmospheric refraction.
	sunriseDepression = 0.833
	// civilDepression bounds civil twilight (dawn / dusk).
	civilDepression = 6.0
	// earthRadius in metres, as used for the horizon dip correction.
	earthRadius = 6356900.0
)

// Provider produces the solar events of one calendar date for an observer.
//
// The calendar date is date's year/month/day in date.Location(), and every
// returned instant is expressed in that location. Implementations wrap
// model.ErrEphemerisUnavailable when the sun does not rise or set.
type Provider interface {
	Events(obs model.Observer, date time.Time) (model.SolarEvents, error)
}

// SunriseProvider computes solar events with github.com/nathan-osman/go-sunrise.
type SunriseProvider struct {
	log *appLog.Logger
}

// NewSunriseProvider constructs the go-sunrise backed Provider.
func NewSunriseProvider(logger *appLog.Logger) *SunriseProvider {
	return &SunriseProvider{log: logger}
}

// maxDayShifts bounds how far Events walks from the requested date looking
// for the solar day whose sunrise falls on it.
const maxDayShifts = 2

// Events implements Provider.
//
// go-sunrise numbers solar days around the UTC transit, so when the zone
// offset is far from longitude/15 (UTC+14 at lon -157, Tokyo kept in UTC)
// its day D can rise on local D-1 or D+1. The solar day is shifted until its
// sunrise lands on date's local calendar day; sunset and dusk may then fall
// on the following local day.
func (p *SunriseProvider) Events(obs model.Observer, date time.Time) (model.SolarEvents, error) {
	if err := obs.Validate(); err != nil {
		return model.SolarEvents{}, err
	}

	loc := date.Location()
	want := dayKey(date)
	dip := HorizonDip(obs.Elevation)

	shift := 0
	for attempt := 0; attempt <= maxDayShifts; attempt++ {
		solarDay := want.AddDate(0, 0, shift)
		events, err := p.solarDay(obs, dip, solarDay, loc)
		if err != nil {
			return model.SolarEvents{}, err
		}

		got := dayKey(events.Sunrise)
		switch {
		case got.Equal(want):
			p.log.Debug("ephemeris: computed",
				"date", want.Format(time.DateOnly),
				"solar_day_shift", shift,
				"dawn", events.Dawn,
				"sunrise", events.Sunrise,
				"noon", events.Noon,
				"sunset", events.Sunset,
				"dusk", events.Dusk,
			)
			return events, nil
		case got.After(want):
			shift--
		default:
			shift++
		}
	}

	p.log.Warn("ephemeris: no sunrise on local date",
		"lat", obs.Latitude, "lon", obs.Longitude, "date", want.Format(time.DateOnly), "timezone", loc.String())
	return model.SolarEvents{}, fmt.Errorf("%w: no sunrise at (%.4f, %.4f) on local date %s",
		model.ErrEphemerisUnavailable, obs.Latitude, obs.Longitude, want.Format(time.DateOnly))
}

// solarDay computes go-sunrise's solar day for day's UTC calendar date and
// expresses the instants in loc.
func (p *SunriseProvider) solarDay(obs model.Observer, dip float64, day time.Time, loc *time.Location) (model.SolarEvents, error) {
	y, m, d := day.Date()

	sunriseAt, sunsetAt := sunrise.TimeOfElevation(obs.Latitude, obs.Longitude, -(sunriseDepression + dip), y, m, d)
	dawn, dusk := sunrise.TimeOfElevation(obs.Latitude, obs.Longitude, -(civilDepression + dip), y, m, d)

	// go-sunrise reports "never" as the zero time.
	if sunriseAt.IsZero() || sunsetAt.IsZero() || dawn.IsZero() || dusk.IsZero() {
		p.log.Warn("ephemeris: sun does not cross horizon",
			"lat", obs.Latitude, "lon", obs.Longitude, "solar_day", day.Format(time.DateOnly))
		return model.SolarEvents{}, fmt.Errorf("%w: no sunrise/sunset at (%.4f, %.4f) on %s",
			model.ErrEphemerisUnavailable, obs.Latitude, obs.Longitude, day.Format(time.DateOnly))
	}

	events := model.SolarEvents{
		Dawn:    dawn,
		Sunrise: sunriseAt,
		Noon:    SolarNoon(obs.Longitude, y, m, d),
		Sunset:  sunsetAt,
		Dusk:    dusk,
	}.In(loc)

	if err := events.Validate(); err != nil {
		return model.SolarEvents{}, fmt.Errorf("%w: %v", model.ErrEphemerisUnavailable, err)
	}
	return events, nil
}

// SolarNoon is the solar transit of go-sunrise's solar day y-m-d at
// longitude, in UTC.
func SolarNoon(longitude float64, y int, m time.Month, d int) time.Time {
	var (
		j                 = sunrise.MeanSolarNoon(longitude, y, m, d)
		solarAnomaly      = sunrise.SolarMeanAnomaly(j)
		equationOfCenter  = sunrise.EquationOfCenter(solarAnomaly)
		eclipticLongitude = sunrise.EclipticLongitude(solarAnomaly, equationOfCenter, j)
		transit           = sunrise.SolarTransit(j, solarAnomaly, eclipticLongitude)
	)
	return sunrise.JulianDayToTime(transit)
}

// dayKey is t's local calendar date as a UTC midnight, comparable across
// zones and DST.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HorizonDip returns the extra depression in degrees of the visible horizon
// for an observer elevation metres above the surface.
func HorizonDip(elevation float64) float64 {
	if elevation <= 0 {
		return 0
	}
	return math.Acos(earthRadius/(earthRadius+elevation)) * 180 / math.Pi
}

// DayOffset returns the calendar date offset by days from date, at local
// midnight in date's location.
func DayOffset(date time.Time, days int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, date.Location())
}
