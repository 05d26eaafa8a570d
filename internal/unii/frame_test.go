package unii

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSharedKey = "frame test key"

func decodeWire(t *testing.T, c codec, wire []byte) *Frame {
	t.Helper()
	h, err := parseHeader(wire[:headerLen])
	require.NoError(t, err)
	require.EqualValues(t, len(wire), h.length)
	f, err := c.decodeBody(h, wire[headerLen:])
	require.NoError(t, err)
	return f
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newCodec(testSharedKey, true)
	sess := Session{ID: 0x1234, TxSeq: 7, RxSeq: 3}
	data := []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF}

	wire, err := c.encode(&sess, CmdRequestSectionStatus, data)
	require.NoError(t, err)

	// Encoding must not touch the counters; the caller bumps TxSeq
	// after the write succeeds.
	assert.Equal(t, Session{ID: 0x1234, TxSeq: 7, RxSeq: 3}, sess)

	f := decodeWire(t, c, wire)
	assert.Equal(t, uint16(0x1234), f.SessionID)
	assert.Equal(t, uint32(7), f.TxSeq)
	assert.Equal(t, uint32(3), f.RxSeq)
	assert.Equal(t, CmdRequestSectionStatus, f.Command)
	assert.Equal(t, data, f.Data)
}

func TestEncodePlaintext(t *testing.T) {
	c := newCodec("", true)
	sess := Session{ID: SessionUnassigned}

	wire, err := c.encode(&sess, CmdConnectionRequest, nil)
	require.NoError(t, err)

	assert.EqualValues(t, protoPlaintext, wire[10])
	// The inner command id is readable on the wire.
	assert.Equal(t, uint16(CmdConnectionRequest), binary.BigEndian.Uint16(wire[headerLen:headerLen+2]))

	f := decodeWire(t, c, wire)
	assert.Equal(t, CmdConnectionRequest, f.Command)
	assert.Empty(t, f.Data)
}

func TestEncodePacketTypes(t *testing.T) {
	c := newCodec(testSharedKey, true)

	sess := Session{ID: SessionUnassigned}
	wire, err := c.encode(&sess, CmdConnectionRequest, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0x01, wire[11])
	assert.EqualValues(t, protoEncrypted, wire[10])

	wire, err = c.encode(&sess, CmdRequestInputStatus, []byte{0x02})
	require.NoError(t, err)
	assert.EqualValues(t, 0x02, wire[11])
}

func TestEncodeLengthAndPadding(t *testing.T) {
	c := newCodec(testSharedKey, true)

	for _, size := range []int{0, 1, 15, 16, 200} {
		sess := Session{ID: 0x0001}
		data := bytes.Repeat([]byte{0xAB}, size)

		wire, err := c.encode(&sess, CmdRequestInputArrangement, data)
		require.NoError(t, err)

		declared := binary.BigEndian.Uint16(wire[12:14])
		assert.EqualValues(t, len(wire), declared, "payload size %d", size)
		assert.Zero(t, len(wire)%padBlock, "payload size %d", size)

		f := decodeWire(t, c, wire)
		assert.Equal(t, data, f.Data, "payload size %d", size)
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	c := newCodec(testSharedKey, true)
	sess := Session{}

	_, err := c.encode(&sess, CmdRequestInputArrangement, make([]byte, maxFrameLen))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestParseHeaderBounds(t *testing.T) {
	base := make([]byte, headerLen)
	base[10] = protoEncrypted
	base[11] = 0x02

	for _, tt := range []struct {
		length uint16
		ok     bool
	}{
		{15, false},
		{16, true},
		{4096, true},
		{4097, false},
		{0, false},
	} {
		hdr := append([]byte{}, base...)
		binary.BigEndian.PutUint16(hdr[12:14], tt.length)

		_, err := parseHeader(hdr)
		if tt.ok {
			assert.NoError(t, err, "length %d", tt.length)
		} else {
			assert.ErrorIs(t, err, ErrProtocol, "length %d", tt.length)
		}
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	c := newCodec(testSharedKey, true)
	sess := Session{ID: 0x0042}

	wire, err := c.encode(&sess, CmdRequestSectionStatus, []byte{0x01})
	require.NoError(t, err)

	corrupt := append([]byte{}, wire...)
	corrupt[len(corrupt)-1] ^= 0xFF

	h, err := parseHeader(corrupt[:headerLen])
	require.NoError(t, err)
	_, err = c.decodeBody(h, corrupt[headerLen:])
	assert.ErrorIs(t, err, ErrProtocol)

	// With verification disabled the same frame decodes fine.
	lenient := newCodec(testSharedKey, false)
	f, err := lenient.decodeBody(h, corrupt[headerLen:])
	require.NoError(t, err)
	assert.Equal(t, CmdRequestSectionStatus, f.Command)
	assert.Equal(t, []byte{0x01}, f.Data)
}

func TestDecodeEncryptedWithoutKey(t *testing.T) {
	enc := newCodec(testSharedKey, true)
	sess := Session{ID: 0x0042}

	wire, err := enc.encode(&sess, CmdRequestSectionStatus, []byte{0x01})
	require.NoError(t, err)

	plainCodec := newCodec("", true)
	h, err := parseHeader(wire[:headerLen])
	require.NoError(t, err)
	_, err = plainCodec.decodeBody(h, wire[headerLen:])
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestDecodeClampsDataLength(t *testing.T) {
	// A frame whose inner length field claims more data than the
	// frame carries must not panic; the data is clamped to what is
	// actually there.
	c := newCodec("", false)

	inner := make([]byte, 12)
	binary.BigEndian.PutUint16(inner[0:2], uint16(CmdSectionStatusResponse))
	binary.BigEndian.PutUint16(inner[2:4], 500)

	hdr := make([]byte, headerLen)
	hdr[10] = protoPlaintext
	total := headerLen + len(inner) + crcLen
	binary.BigEndian.PutUint16(hdr[12:14], uint16(total))

	body := append(append([]byte{}, inner...), 0x00, 0x00)
	h, err := parseHeader(hdr)
	require.NoError(t, err)

	f, err := c.decodeBody(h, body)
	require.NoError(t, err)
	assert.Len(t, f.Data, len(inner)-4)
}
