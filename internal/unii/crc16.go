package unii

const crcPolynomial = 0x1021

// CRC16 computes the 16-bit frame checksum: polynomial 0x1021, zero
// initial value, MSB first, no final XOR.
func CRC16(data []byte) uint16 {
	crc := uint16(0)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
