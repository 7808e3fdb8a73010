// Package ics renders milestones and task reminders as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/theirongolddev/dealdates/internal/pipeline"
)

// ProductID identifies the generator in PRODID.
const ProductID = "-//dealdates//Important Dates//EN"

// Options controls feed generation.
type Options struct {
	Name         string    // X-WR-CALNAME; empty omits it
	AlarmDays    int       // reminder lead time; 0 means 1 day, negative disables alarms
	IncludeTasks bool      // emit task reminders alongside milestones
	Now          time.Time // DTSTAMP; zero means time.Now
}

// Build returns the feed for deals as ICS text. Every dated milestone
// becomes an all-day VEVENT; dateless ones are skipped.
func Build(deals []pipeline.Deal, opts Options) string {
	return build(deals, opts).Serialize()
}

// Export writes the feed for deals to w.
func Export(w io.Writer, deals []pipeline.Deal, opts Options) error {
	if _, err := io.WriteString(w, Build(deals, opts)); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

// Count returns how many events Build would emit.
func Count(deals []pipeline.Deal, opts Options) int {
	n := 0
	for _, d := range deals {
		for _, m := range d.Milestones {
			if m.Date != nil {
				n++
			}
		}
		if opts.IncludeTasks {
			for _, t := range d.Tasks {
				if t.Date != nil && !t.Completed {
					n++
				}
			}
		}
	}
	return n
}

func build(deals []pipeline.Deal, opts Options) *ical.Calendar {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, d := range deals {
		addr := d.Txn.ShortAddress()
		for _, m := range d.Milestones {
			if m.Date == nil {
				continue
			}
			desc := m.Notes
			if desc == "" {
				desc = m.Label
			}
			ev := cal.AddEvent(fmt.Sprintf("%s-%s@dealdates", d.Txn.ID, m.Key))
			ev.SetDtStampTime(now)
			ev.SetAllDayStartAt(*m.Date)
			ev.SetSummary(summary(m.Label, addr))
			ev.SetDescription(desc)
			addAlarm(ev, m.Label, opts.AlarmDays)
		}

		if !opts.IncludeTasks {
			continue
		}
		for _, t := range d.Tasks {
			if t.Date == nil || t.Completed {
				continue
			}
			desc := t.Notes
			if desc == "" {
				desc = t.Label
			}
			ev := cal.AddEvent(fmt.Sprintf("%s-task-%s@dealdates", d.Txn.ID, t.ID))
			ev.SetDtStampTime(now)
			ev.SetAllDayStartAt(*t.Date)
			ev.SetSummary(summary(t.Label, addr))
			ev.SetDescription(desc)
			addAlarm(ev, t.Label, opts.AlarmDays)
		}
	}
	return cal
}

func summary(label, addr string) string {
	if addr == "" {
		return label
	}
	return label + " - " + addr
}

func addAlarm(ev *ical.VEvent, label string, days int) {
	if days < 0 {
		return
	}
	if days == 0 {
		days = 1
	}
	alarm := ev.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetTrigger(fmt.Sprintf("-P%dD", days))
	alarm.SetProperty(ical.ComponentPropertyDescription, label)
}
