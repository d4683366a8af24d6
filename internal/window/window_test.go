package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunbar/internal/ephemeris"
	"sunbar/internal/model"
)

// dayEvents builds a fixed 06:00 sunrise / 18:00 sunset day.
func dayEvents(y int, m time.Month, d int) model.SolarEvents {
	base := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return model.SolarEvents{
		Dawn:    base.Add(5*time.Hour + 30*time.Minute),
		Sunrise: base.Add(6 * time.Hour),
		Noon:    base.Add(12 * time.Hour),
		Sunset:  base.Add(18 * time.Hour),
		Dusk:    base.Add(18*time.Hour + 30*time.Minute),
	}
}

func TestSelectBeforeSunriseUsesYesterday(t *testing.T) {
	today := dayEvents(2024, 6, 2)
	yesterday := dayEvents(2024, 6, 1)
	now := time.Date(2024, 6, 2, 5, 0, 0, 0, time.UTC)

	require.Equal(t, -1, AdjacentOffset(now, today))

	w, err := Select(now, today, yesterday)
	require.NoError(t, err)
	assert.Equal(t, yesterday.Sunrise, w.Start)
	assert.Equal(t, yesterday.Sunset, w.SunsetMark)
	assert.Equal(t, today.Sunrise, w.End)
	assert.Equal(t, now, w.Now)
}

func TestSelectAfterSunriseUsesTomorrow(t *testing.T) {
	today := dayEvents(2024, 6, 2)
	tomorrow := dayEvents(2024, 6, 3)
	now := time.Date(2024, 6, 2, 12, 30, 0, 0, time.UTC)

	require.Equal(t, 1, AdjacentOffset(now, today))

	w, err := Select(now, today, tomorrow)
	require.NoError(t, err)
	assert.Equal(t, today.Sunrise, w.Start)
	assert.Equal(t, today.Sunset, w.SunsetMark)
	assert.Equal(t, tomorrow.Sunrise, w.End)
}

func TestSelectAtSunriseStartsNewWindowButFailsStrictStart(t *testing.T) {
	today := dayEvents(2024, 6, 2)
	tomorrow := dayEvents(2024, 6, 3)

	// now == sunrise selects today's window, whose start is not strictly
	// before now.
	assert.Equal(t, 1, AdjacentOffset(today.Sunrise, today))
	_, err := Select(today.Sunrise, today, tomorrow)
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestSelectWrongNeighbourFails(t *testing.T) {
	today := dayEvents(2024, 6, 2)
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	// Passing yesterday where tomorrow is expected makes end < start.
	_, err := Select(now, today, dayEvents(2024, 6, 1))
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestSelectMalformedEvents(t *testing.T) {
	today := dayEvents(2024, 6, 2)
	today.Sunset = today.Sunrise.Add(-time.Hour)
	now := time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC)

	_, err := Select(now, today, dayEvents(2024, 6, 3))
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

type fakeProvider struct {
	requested []string
	fail      map[string]error
}

func (f *fakeProvider) Events(_ model.Observer, date time.Time) (model.SolarEvents, error) {
	key := date.Format(time.DateOnly)
	f.requested = append(f.requested, key)
	if err := f.fail[key]; err != nil {
		return model.SolarEvents{}, err
	}
	return dayEvents(date.Year(), date.Month(), date.Day()), nil
}

func TestResolverFetchesOnlyNeededNeighbour(t *testing.T) {
	obs := model.Observer{Latitude: 10, Longitude: 10}

	p := &fakeProvider{}
	w, err := NewResolver(p, nil).Resolve(obs, time.Date(2024, 6, 2, 5, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-02", "2024-06-01"}, p.requested)
	assert.Equal(t, 1, w.Start.Day())

	p = &fakeProvider{}
	w, err = NewResolver(p, nil).Resolve(obs, time.Date(2024, 6, 2, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-02", "2024-06-03"}, p.requested)
	assert.Equal(t, 2, w.Start.Day())
}

func TestResolverPropagatesEphemerisError(t *testing.T) {
	p := &fakeProvider{fail: map[string]error{"2024-06-03": model.ErrEphemerisUnavailable}}

	_, err := NewResolver(p, nil).Resolve(model.Observer{}, time.Date(2024, 6, 2, 7, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, model.ErrEphemerisUnavailable)
}

func TestResolverWithSunriseProvider(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	obs := model.Observer{Latitude: 48.8566, Longitude: 2.3522}
	r := NewResolver(ephemeris.NewSunriseProvider(nil), nil)

	for _, h := range []int{0, 3, 9, 15, 21, 23} {
		now := time.Date(2024, 1, 15, h, 10, 0, 0, loc)
		w, err := r.Resolve(obs, now)
		require.NoError(t, err, "hour %d", h)
		assert.True(t, w.Start.Before(now) && now.Before(w.End), "hour %d", h)
		assert.InDelta(t, 24*time.Hour, w.Span(), float64(5*time.Minute), "hour %d", h)
	}
}

func TestResolverEveryHourFarFromSolarTime(t *testing.T) {
	cases := []struct {
		name string
		obs  model.Observer
		loc  *time.Location
	}{
		{"kiritimati", model.Observer{Latitude: 1.87, Longitude: -157.4}, time.FixedZone("+14", 14*3600)},
		{"apia", model.Observer{Latitude: -13.83, Longitude: -171.76}, time.FixedZone("+13", 13*3600)},
		{"tokyo-utc", model.Observer{Latitude: 35.68, Longitude: 139.69}, time.UTC},
	}

	r := NewResolver(ephemeris.NewSunriseProvider(nil), nil)
	for _, c := range cases {
		for h := 0; h < 24; h++ {
			now := time.Date(2024, 3, 10, h, 17, 0, 0, c.loc)
			w, err := r.Resolve(c.obs, now)
			require.NoError(t, err, "%s hour %d", c.name, h)
			assert.True(t, w.Start.Before(now) && now.Before(w.End), "%s hour %d", c.name, h)
			assert.True(t, w.Start.Before(w.SunsetMark) && w.SunsetMark.Before(w.End), "%s hour %d", c.name, h)
			assert.InDelta(t, 24*time.Hour, w.Span(), float64(5*time.Minute), "%s hour %d", c.name, h)
		}
	}
}
