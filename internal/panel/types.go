package panel

import (
	"time"

	"github.com/unii2mqtt/unii2mqtt/internal/unii"
)

// Section is the host-side view of a panel section.
type Section struct {
	Number int
	State  unii.SectionState
	// Pending marks a state projected from a recently issued command
	// and not yet confirmed by the panel.
	Pending bool
}

// Input is the host-side view of a panel input, combining the
// provisioning data from the arrangement download with the live
// status byte.
type Input struct {
	Number     int              `json:"number"`
	Name       string           `json:"name"`
	Slug       string           `json:"slug"`
	SensorType unii.SensorType  `json:"sensor_type"`
	Reaction   byte             `json:"reaction"`
	Status     unii.InputStatus `json:"-"`
}

// Provisioned reports whether the input came from the arrangement
// download rather than from a bare status poll.
func (in Input) Provisioned() bool {
	return in.Name != ""
}

// override is an operator-projected section state. It masks the
// confirmed state until the panel reports the section or the
// projection expires.
type override struct {
	state   unii.SectionState
	expires time.Time
}
