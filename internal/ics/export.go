package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"sunbar/internal/ephemeris"
	appLog "sunbar/internal/log"
	"sunbar/internal/model"
)

const productID = "-//sunbar//solar events//EN"

// Export renders an iCalendar (RFC 5545) document with one "Daylight" event
// per day, spanning sunrise to sunset. The description lists all five
// solar events in the date's location. from also stamps every event.
func Export(p ephemeris.Provider, obs model.Observer, from time.Time, days int, logger *appLog.Logger) (string, error) {
	upcoming, err := Upcoming(p, obs, from, days, logger)
	if err != nil {
		return "", err
	}

	cal := Calendar(obs, upcoming, from)
	logger.Info("ics export completed", "days", len(upcoming), "requested", days)
	return cal.Serialize(), nil
}

// Calendar builds the VCALENDAR for already computed days. stamp is used as
// DTSTAMP for every event.
func Calendar(obs model.Observer, days []Day, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, d := range days {
		ev := cal.AddEvent(eventUID(obs, d.Date))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(d.Events.Sunrise)
		ev.SetEndAt(d.Events.Sunset)
		ev.SetSummary("Daylight")
		ev.SetLocation(fmt.Sprintf("%.4f,%.4f", obs.Latitude, obs.Longitude))
		ev.SetDescription(describe(d.Events))
	}
	return cal
}

// eventUID is stable for a given observer and date so that calendar clients
// replace rather than duplicate events on re-import.
func eventUID(obs model.Observer, date time.Time) string {
	return fmt.Sprintf("%s_%.4f_%.4f@sunbar", date.Format("20060102"), obs.Latitude, obs.Longitude)
}

func describe(ev model.SolarEvents) string {
	var b strings.Builder
	rows := []struct {
		name string
		at   time.Time
	}{
		{"Dawn", ev.Dawn},
		{"Sunrise", ev.Sunrise},
		{"Noon", ev.Noon},
		{"Sunset", ev.Sunset},
		{"Dusk", ev.Dusk},
	}
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.name + ": " + r.at.Format("15:04 MST"))
	}
	return b.String()
}
