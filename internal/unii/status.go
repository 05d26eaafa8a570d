package unii

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/unii2mqtt/unii2mqtt/internal/util"
)

// Variant selects between the two observed generations of the status
// encodings. Panels in the field disagree on where the section pairs
// start and how input status is laid out, so the choice is explicit
// configuration rather than a guess.
type Variant int

const (
	// VariantStandard expects a version byte before the section pairs
	// and a linear per-index input status array.
	VariantStandard Variant = iota
	// VariantLegacy expects bare (id, value) pairs for both decodes.
	VariantLegacy
)

// ParseVariant maps the configuration string onto a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "", "standard":
		return VariantStandard, nil
	case "legacy":
		return VariantLegacy, nil
	default:
		return 0, fmt.Errorf("unii: unknown protocol variant %q", s)
	}
}

func (v Variant) String() string {
	switch v {
	case VariantStandard:
		return "standard"
	case VariantLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Unknown Variant(%d)", int(v))
	}
}

// decodeSectionStatus parses a section status response into a map of
// section number to armed state.
func decodeSectionStatus(v Variant, data []byte) map[int]SectionState {
	start := 0
	if v == VariantStandard {
		start = 1 // version byte
	}

	sections := make(map[int]SectionState)
	for i := start; i+1 < len(data); i += 2 {
		id := int(data[i])
		if id == 0 {
			continue
		}
		sections[id] = SectionState(data[i+1])
	}
	return sections
}

// decodeInputStatus parses an input status response into a map of
// input number to raw status byte.
func decodeInputStatus(v Variant, data []byte) map[int]InputStatus {
	inputs := make(map[int]InputStatus)

	if v == VariantLegacy {
		for i := 0; i+1 < len(data); i += 2 {
			id := int(data[i])
			if id == 0 {
				continue
			}
			inputs[id] = InputStatus(data[i+1])
		}
		return inputs
	}

	// Standard layout: 2-byte header, then one status byte per input,
	// 1-based by position.
	for i := 2; i < len(data); i++ {
		inputs[i-1] = InputStatus(data[i])
	}
	return inputs
}

const (
	arrangementDataOffset = 3
	arrangementRecordLen  = 22
	arrangementBlockSize  = 44 // input numbers covered per block

	// Placeholder text the panel stores in unprovisioned name slots.
	arrangementPlaceholder = "VRIJE TEKST"
)

// decodeArrangementBlock parses one input arrangement response block.
// It returns the provisioned inputs plus the raw record count, which
// drives pagination: a block without records ends the scan, while a
// block of placeholder-only records does not.
func decodeArrangementBlock(block int, data []byte) ([]Input, int) {
	if len(data) < arrangementDataOffset {
		return nil, 0
	}

	var inputs []Input
	records := 0
	for off := arrangementDataOffset; off+arrangementRecordLen <= len(data); off += arrangementRecordLen {
		rec := data[off : off+arrangementRecordLen]
		number := (block-1)*arrangementBlockSize + records + 1
		records++

		name := util.Normalize(strings.ToValidUTF8(string(rec[3:19]), "�"))
		if name == "" || strings.Contains(name, arrangementPlaceholder) {
			continue
		}

		inputs = append(inputs, Input{
			Number:     number,
			Name:       name,
			SensorType: SensorType(rec[1]),
			Reaction:   rec[2],
		})
	}
	return inputs, records
}

// sectionStatusPayload builds the request payload for a section status
// poll: a version byte plus a 4-byte bitmask selecting all sections.
func sectionStatusPayload() []byte {
	return []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}
}

// inputStatusPayload builds the request payload for an input status
// poll.
func inputStatusPayload() []byte {
	return []byte{0x02}
}

// arrangementPayload builds the request payload for one arrangement
// block, 1-based.
func arrangementPayload(block int) []byte {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(block))
	return payload
}

// controlSectionPayload builds the arm/disarm request payload.
func controlSectionPayload(code string, section int) ([]byte, error) {
	bcd, err := EncodeBCD(code)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 11)
	payload = append(payload, 0x00)
	payload = append(payload, bcd...)
	payload = append(payload, byte(section), 0x01)
	return payload, nil
}

// controlInputPayload builds the bypass/unbypass request payload.
func controlInputPayload(code string, input int) ([]byte, error) {
	bcd, err := EncodeBCD(code)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, 11)
	payload = append(payload, 0x00)
	payload = append(payload, bcd...)
	payload = binary.BigEndian.AppendUint16(payload, uint16(input))
	return payload, nil
}
