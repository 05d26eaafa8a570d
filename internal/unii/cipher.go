package unii

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// padKey derives the AES-128 key from the configured shared key:
// truncated to 16 bytes, right-padded with ASCII spaces.
func padKey(sharedKey string) []byte {
	key := make([]byte, aes.BlockSize)
	for i := range key {
		key[i] = ' '
	}
	copy(key, sharedKey)
	return key
}

// cipherTransform runs the AES-CTR keystream over data and returns the
// result. Encryption and decryption are the same operation. The
// initial counter is the first 12 header bytes followed by 4 zero
// bytes, read as a big-endian 128-bit value; the tx/rx sequence fields
// in the header make it unique per frame.
func cipherTransform(key, header, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %v", err)
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, header[:12])

	out := make([]byte, len(data))
	cipher.NewCTR(block, iv).XORKeyStream(out, data)
	return out, nil
}
