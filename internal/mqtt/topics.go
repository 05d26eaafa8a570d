package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics builds and parses the bridge's topic tree. Sections and
// inputs are addressed by number; numbers survive renames on the
// panel, names do not.
type Topics struct {
	prefix string
}

func NewTopics(prefix string) *Topics {
	return &Topics{prefix: prefix}
}

func (t *Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

func (t *Topics) Event() string {
	return fmt.Sprintf("%s/event", t.prefix)
}

func (t *Topics) Refresh() string {
	return fmt.Sprintf("%s/refresh", t.prefix)
}

func (t *Topics) SectionState(number int) string {
	return fmt.Sprintf("%s/section/%d/state", t.prefix, number)
}

func (t *Topics) SectionCommand(number int) string {
	return fmt.Sprintf("%s/section/%d/command", t.prefix, number)
}

// SectionCommandPattern matches the command topic of any section.
func (t *Topics) SectionCommandPattern() string {
	return fmt.Sprintf("%s/section/+/command", t.prefix)
}

func (t *Topics) InputState(number int) string {
	return fmt.Sprintf("%s/input/%d/state", t.prefix, number)
}

func (t *Topics) InputBypass(number int) string {
	return fmt.Sprintf("%s/input/%d/bypass", t.prefix, number)
}

// InputBypassPattern matches the bypass topic of any input.
func (t *Topics) InputBypassPattern() string {
	return fmt.Sprintf("%s/input/+/bypass", t.prefix)
}

// ParseSectionCommand extracts the section number from a section
// command topic.
func (t *Topics) ParseSectionCommand(topic string) (int, bool) {
	return t.parseNumber(topic, "/section/", "/command")
}

// ParseInputBypass extracts the input number from an input bypass
// topic.
func (t *Topics) ParseInputBypass(topic string) (int, bool) {
	return t.parseNumber(topic, "/input/", "/bypass")
}

func (t *Topics) parseNumber(topic, middle, suffix string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, t.prefix+middle)
	if !ok {
		return 0, false
	}
	raw, ok := strings.CutSuffix(rest, suffix)
	if !ok {
		return 0, false
	}
	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return 0, false
	}
	return number, true
}
