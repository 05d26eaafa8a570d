package unii

import "fmt"

const bcdDigits = 16

// EncodeBCD packs a numeric access code into 8 bytes, two decimal
// digits per byte. Codes shorter than 16 digits are right-padded with
// zero digits; longer codes are truncated to the first 16.
func EncodeBCD(code string) ([]byte, error) {
	if len(code) > bcdDigits {
		code = code[:bcdDigits]
	}

	out := make([]byte, bcdDigits/2)
	for i := 0; i < bcdDigits; i++ {
		d := byte(0)
		if i < len(code) {
			d = code[i] - '0'
			if d > 9 {
				return nil, fmt.Errorf("unii: access code contains non-digit %q", code[i])
			}
		}
		if i%2 == 0 {
			out[i/2] = d << 4
		} else {
			out[i/2] |= d
		}
	}
	return out, nil
}
