package unii

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	textEventMinLen     = 12
	textEventSectionIdx = 1
	textEventTextOffset = 10

	// Keyword substrings in panel log texts implying a state change.
	// Locale dependent, hence best effort only.
	keywordArmed    = "INSCHAKELEN"
	keywordDisarmed = "UITSCHAKELEN"
)

// handleEventFrame interprets an unsolicited frame. Frames that are
// not recognized notifications are ignored.
func (c *Client) handleEventFrame(f *Frame) {
	switch f.Command {
	case CmdSectionArmedStateChanged:
		if len(f.Data) < 2 {
			c.log.Debug("Ignoring short section state change frame (%d bytes)", len(f.Data))
			return
		}
		ev := Event{
			Section: int(f.Data[0]),
			State:   SectionState(f.Data[1]),
			Source:  EventSourceStructured,
		}
		c.log.Panel("Section %d changed to %s", ev.Section, ev.State)
		c.recordEvent(ev)

	case CmdEventOccurred:
		if ev, ok := parseTextEvent(f.Data); ok {
			c.log.Panel("Section %d inferred %s from log text %q", ev.Section, ev.State, ev.Text)
			c.recordEvent(ev)
		}
	}
}

// parseTextEvent scans a panel log frame for arm/disarm keywords. The
// text portion is Latin-1 from a fixed offset; the section number sits
// in the fixed-layout prefix.
func parseTextEvent(data []byte) (Event, bool) {
	if len(data) < textEventMinLen {
		return Event{}, false
	}

	text := decodeLatin1(data[textEventTextOffset:])

	var state SectionState
	switch {
	case strings.Contains(text, keywordArmed):
		state = SectionStateArmed
	case strings.Contains(text, keywordDisarmed):
		state = SectionStateDisarmedAlt
	default:
		return Event{}, false
	}

	return Event{
		Section: int(data[textEventSectionIdx]),
		State:   state,
		Source:  EventSourceText,
		Text:    strings.TrimSpace(text),
	}, true
}

func decodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// recordEvent stores an event in the per-client state map and pushes
// it to the event stream. Text-derived events fill gaps but never
// replace a structured entry for the same section.
func (c *Client) recordEvent(ev Event) {
	c.eventMu.Lock()
	prev, ok := c.events[ev.Section]
	if ev.Source == EventSourceText && ok && prev.Source == EventSourceStructured {
		c.eventMu.Unlock()
		c.log.Debug("Keeping structured state for section %d over text-derived %s", ev.Section, ev.State)
		return
	}
	c.events[ev.Section] = ev
	c.eventMu.Unlock()

	c.metrics.IncEvents()

	select {
	case c.eventCh <- ev:
	default:
		c.log.Debug("Event stream full, dropping event for section %d", ev.Section)
	}
}

// Events returns a copy of the captured section events.
func (c *Client) Events() map[int]Event {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	events := make(map[int]Event, len(c.events))
	for id, ev := range c.events {
		events[id] = ev
	}
	return events
}

// TakeEvents returns the captured section events and clears the map.
func (c *Client) TakeEvents() map[int]Event {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	events := c.events
	c.events = make(map[int]Event)
	return events
}

// EventStream delivers events as they are interpreted. The stream is
// buffered; events are dropped, not blocked on, when no one reads it.
func (c *Client) EventStream() <-chan Event {
	return c.eventCh
}
