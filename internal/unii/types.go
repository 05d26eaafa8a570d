package unii

import "fmt"

// SectionState is the armed-state code of a section as reported by
// status polls and state change events.
type SectionState byte

const (
	SectionStateDisarmed    SectionState = 0
	SectionStateArmed       SectionState = 1
	SectionStateDisarmedAlt SectionState = 2 // reported by some firmware instead of 0
	SectionStateExitTimer   SectionState = 3
	SectionStateEntryTimer  SectionState = 4
	SectionStateAlarm       SectionState = 5
)

func (s SectionState) String() string {
	switch s {
	case SectionStateDisarmed, SectionStateDisarmedAlt:
		return "Disarmed"
	case SectionStateArmed:
		return "Armed"
	case SectionStateExitTimer:
		return "Exit Timer"
	case SectionStateEntryTimer:
		return "Entry Timer"
	case SectionStateAlarm:
		return "Alarm"
	default:
		return fmt.Sprintf("Unknown SectionState(%d)", byte(s))
	}
}

// Disarmed reports whether the code is one of the two disarmed values.
func (s SectionState) Disarmed() bool {
	return s == SectionStateDisarmed || s == SectionStateDisarmedAlt
}

// InputStatus is the raw status byte of an input. The low nibble holds
// the state code, the high nibble carries modifier flags.
type InputStatus byte

const inputStateDisabled = 0xF

func (s InputStatus) State() byte      { return byte(s) & 0x0F }
func (s InputStatus) Open() bool       { return s&0x01 != 0 }
func (s InputStatus) Tamper() bool     { return s&0x02 != 0 }
func (s InputStatus) Masked() bool     { return s&0x04 != 0 }
func (s InputStatus) Bypassed() bool   { return s&0x10 != 0 }
func (s InputStatus) LowBattery() bool { return s&0x40 != 0 }

// Disabled reports whether the state code is the reserved value marking
// an input slot without a real zone behind it.
func (s InputStatus) Disabled() bool { return s.State() == inputStateDisabled }

func (s InputStatus) String() string {
	if s.Disabled() {
		return "Disabled"
	}
	if s.Open() {
		return "Open"
	}
	return "Closed"
}

// SensorType classifies an input as provisioned in the panel.
type SensorType byte

const (
	SensorTypeBurglary   SensorType = 1
	SensorTypeGlassBreak SensorType = 15
)

func (t SensorType) String() string {
	switch t {
	case SensorTypeBurglary:
		return "Burglary"
	case SensorTypeGlassBreak:
		return "Glass Break"
	default:
		return fmt.Sprintf("Sensor Type %d", byte(t))
	}
}

// Bypassable reports whether the panel accepts bypass commands for
// inputs of this sensor type.
func (t SensorType) Bypassable() bool {
	return t == SensorTypeBurglary || t == SensorTypeGlassBreak
}

// Input is one entry of the panel's input arrangement.
type Input struct {
	Number     int
	Name       string
	SensorType SensorType
	Reaction   byte
}

// EventSource distinguishes how an event entry was derived.
type EventSource int

const (
	// EventSourceStructured marks events decoded from a dedicated
	// state change frame. Authoritative.
	EventSourceStructured EventSource = iota
	// EventSourceText marks events inferred from keywords in a panel
	// log text. Best effort, never overrides structured entries.
	EventSourceText
)

func (s EventSource) String() string {
	switch s {
	case EventSourceStructured:
		return "structured"
	case EventSourceText:
		return "text"
	default:
		return fmt.Sprintf("Unknown EventSource(%d)", int(s))
	}
}

// Event is a section state change reported by the panel outside any
// request/response exchange.
type Event struct {
	Section int
	State   SectionState
	Source  EventSource
	Text    string // trimmed log text for text-derived events
}
