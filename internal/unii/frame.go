package unii

import (
	"encoding/binary"
	"fmt"
)

const (
	headerLen = 14
	crcLen    = 2
	padBlock  = 16

	// Declared frame length bounds. Anything outside is treated as a
	// corrupted stream and tears the connection down.
	minFrameLen = 16
	maxFrameLen = 4096

	protoPlaintext = 0x04
	protoEncrypted = 0x05

	// SessionUnassigned is the session id carried before the panel
	// has accepted a handshake.
	SessionUnassigned = 0xFFFF
)

// Session holds the panel-assigned session identifier and the frame
// sequence counters. It is reset on every disconnect; identifiers are
// never reused across TCP connections.
type Session struct {
	ID    uint16
	TxSeq uint32
	RxSeq uint32
}

// Reset returns the session to its pre-handshake state.
func (s *Session) Reset() {
	s.ID = SessionUnassigned
	s.TxSeq = 0
	s.RxSeq = 0
}

// Frame is a decoded wire frame.
type Frame struct {
	SessionID uint16
	TxSeq     uint32
	RxSeq     uint32
	Command   Command
	Data      []byte
}

type frameHeader struct {
	sessionID  uint16
	txSeq      uint32
	rxSeq      uint32
	protoID    byte
	packetType byte
	length     uint16
	raw        []byte
}

// codec builds and parses wire frames. A nil key selects the
// plaintext protocol id and disables the cipher.
type codec struct {
	key       []byte
	verifyCRC bool
}

func newCodec(sharedKey string, verifyCRC bool) codec {
	c := codec{verifyCRC: verifyCRC}
	if sharedKey != "" {
		c.key = padKey(sharedKey)
	}
	return c
}

// encode serializes a command frame using the session's current
// counters. The caller bumps TxSeq only after a successful write.
func (c codec) encode(sess *Session, cmd Command, data []byte) ([]byte, error) {
	proto := byte(protoPlaintext)
	if c.key != nil {
		proto = protoEncrypted
	}

	header := make([]byte, headerLen)
	binary.BigEndian.PutUint16(header[0:2], sess.ID)
	binary.BigEndian.PutUint32(header[2:6], sess.TxSeq)
	binary.BigEndian.PutUint32(header[6:10], sess.RxSeq)
	header[10] = proto
	header[11] = cmd.packetType()
	// header[12:14] is the length field, patched below.

	inner := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint16(inner[0:2], uint16(cmd))
	binary.BigEndian.PutUint16(inner[2:4], uint16(len(data)))
	inner = append(inner, data...)

	// Zero-pad so header+inner+crc lands on a 16-byte boundary.
	pad := (padBlock - (headerLen+len(inner)+crcLen)%padBlock) % padBlock
	inner = append(inner, make([]byte, pad)...)

	total := headerLen + len(inner) + crcLen
	if total > maxFrameLen {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds maximum", ErrProtocol, total)
	}

	if c.key != nil {
		enc, err := cipherTransform(c.key, header, inner)
		if err != nil {
			return nil, err
		}
		inner = enc
	}

	binary.BigEndian.PutUint16(header[12:14], uint16(total))

	frame := make([]byte, 0, total)
	frame = append(frame, header...)
	frame = append(frame, inner...)

	crc := CRC16(frame)
	frame = binary.BigEndian.AppendUint16(frame, crc)
	return frame, nil
}

// parseHeader validates the fixed 14-byte header and extracts the
// declared total frame length.
func parseHeader(hdr []byte) (frameHeader, error) {
	if len(hdr) != headerLen {
		return frameHeader{}, fmt.Errorf("%w: short header (%d bytes)", ErrProtocol, len(hdr))
	}

	h := frameHeader{
		sessionID:  binary.BigEndian.Uint16(hdr[0:2]),
		txSeq:      binary.BigEndian.Uint32(hdr[2:6]),
		rxSeq:      binary.BigEndian.Uint32(hdr[6:10]),
		protoID:    hdr[10],
		packetType: hdr[11],
		length:     binary.BigEndian.Uint16(hdr[12:14]),
		raw:        hdr,
	}

	if h.length < minFrameLen || h.length > maxFrameLen {
		return frameHeader{}, fmt.Errorf("%w: declared frame length %d out of bounds", ErrProtocol, h.length)
	}
	return h, nil
}

// decodeBody turns the remainder of a frame (everything after the
// header, checksum included) into a Frame.
func (c codec) decodeBody(h frameHeader, body []byte) (*Frame, error) {
	if len(body) < crcLen {
		return nil, fmt.Errorf("%w: frame body too short", ErrProtocol)
	}

	payload := body[:len(body)-crcLen]
	if c.verifyCRC {
		want := binary.BigEndian.Uint16(body[len(body)-crcLen:])
		got := CRC16(append(append([]byte{}, h.raw...), payload...))
		if got != want {
			return nil, fmt.Errorf("%w: checksum mismatch (got 0x%04X, want 0x%04X)", ErrProtocol, got, want)
		}
	}

	plain := payload
	if h.protoID == protoEncrypted {
		if c.key == nil {
			return nil, fmt.Errorf("%w: encrypted frame but no shared key configured", ErrProtocol)
		}
		dec, err := cipherTransform(c.key, h.raw, payload)
		if err != nil {
			return nil, err
		}
		plain = dec
	}

	if len(plain) < 4 {
		return nil, fmt.Errorf("%w: inner payload too short", ErrProtocol)
	}

	dataLen := int(binary.BigEndian.Uint16(plain[2:4]))
	if dataLen > len(plain)-4 {
		dataLen = len(plain) - 4
	}

	return &Frame{
		SessionID: h.sessionID,
		TxSeq:     h.txSeq,
		RxSeq:     h.rxSeq,
		Command:   Command(binary.BigEndian.Uint16(plain[0:2])),
		Data:      plain[4 : 4+dataLen],
	}, nil
}
