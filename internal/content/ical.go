package content

import (
	"bytes"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"caucus/internal/models"
)

const icalProdID = "-//caucus//events//EN"

// lineBreaks collapses CRLF and bare CR so text values escape to a single \n.
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// WriteCalendar writes events as an RFC 5545 VCALENDAR. now is used for
// DTSTAMP.
func WriteCalendar(w io.Writer, events []*models.Event, now time.Time) error {
	cal := ics.NewCalendar()
	cal.SetProductId(icalProdID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)

	for _, e := range events {
		addEvent(cal, e, now)
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf, ics.WithNewLineWindows); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func addEvent(cal *ics.Calendar, e *models.Event, now time.Time) {
	ev := cal.AddEvent(e.ID + "@caucus")
	ev.SetDtStampTime(now)
	ev.SetStartAt(e.Date)
	ev.SetEndAt(e.Ends())
	ev.SetSummary(lineBreaks.Replace(e.Title))
	if e.Location != "" {
		ev.SetLocation(lineBreaks.Replace(e.Location))
	}
	if desc := describe(e); desc != "" {
		ev.SetDescription(lineBreaks.Replace(desc))
	}
	if e.PresentationURL != "" {
		ev.SetURL(e.PresentationURL)
	}
	if !e.UpdatedAt.IsZero() {
		ev.SetLastModifiedAt(e.UpdatedAt)
	}
}

func describe(e *models.Event) string {
	var parts []string
	if e.Summary != "" {
		parts = append(parts, e.Summary)
	}
	if e.PresentationURL != "" {
		parts = append(parts, "Presentation: "+e.PresentationURL)
	}
	return strings.Join(parts, "\n\n")
}
