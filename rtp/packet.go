// Package rtp implements the RTP binary frame codec and a send/receive
// session engine with sequence-number and timestamp bookkeeping (spec
// §4.1.4, §4.7). No jitter buffer, no codec decoding: payload bytes are
// carried opaque.
package rtp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// headerSize is the fixed 12-byte RTP header before any CSRC identifiers.
const headerSize = 12

// ErrTooShort is returned by Unmarshal when the input is shorter than the
// fixed 12-byte header plus its declared CSRC list.
var ErrTooShort = errors.New("rtp: packet too short")

// Packet is a single RTP frame (RFC 3550 §5.1). CC is derived from
// len(CSRC) on Marshal and is not stored separately.
type Packet struct {
	Version        uint8
	Padding        bool
	Extension      bool
	Marker         bool
	PayloadType    uint8
	SequenceNumber uint16
	Timestamp      uint32
	SSRC           uint32
	CSRC           []uint32
	Payload        []byte
}

// Marshal packs p into its wire form: a 12-byte header, CC×4 bytes of CSRC
// identifiers, then the payload (spec §4.1.4).
func (p *Packet) Marshal() ([]byte, error) {
	cc := len(p.CSRC)
	if cc > 15 {
		return nil, fmt.Errorf("rtp: %d CSRC identifiers exceeds the 4-bit CC field", cc)
	}

	buf := make([]byte, headerSize+cc*4+len(p.Payload))

	version := p.Version
	if version == 0 {
		version = 2
	}
	buf[0] = (version << 6) | boolBit(p.Padding, 5) | boolBit(p.Extension, 4) | uint8(cc)
	buf[1] = boolBit(p.Marker, 7) | (p.PayloadType & 0x7f)
	binary.BigEndian.PutUint16(buf[2:4], p.SequenceNumber)
	binary.BigEndian.PutUint32(buf[4:8], p.Timestamp)
	binary.BigEndian.PutUint32(buf[8:12], p.SSRC)

	off := headerSize
	for _, csrc := range p.CSRC {
		binary.BigEndian.PutUint32(buf[off:off+4], csrc)
		off += 4
	}
	copy(buf[off:], p.Payload)

	return buf, nil
}

// Unmarshal decodes buf into p, rejecting inputs shorter than the header
// plus its declared CSRC list (spec §4.1.4 TooShort).
func (p *Packet) Unmarshal(buf []byte) error {
	if len(buf) < headerSize {
		return ErrTooShort
	}

	cc := int(buf[0] & 0x0f)
	if len(buf) < headerSize+cc*4 {
		return ErrTooShort
	}

	p.Version = buf[0] >> 6
	p.Padding = buf[0]&0x20 != 0
	p.Extension = buf[0]&0x10 != 0
	p.Marker = buf[1]&0x80 != 0
	p.PayloadType = buf[1] & 0x7f
	p.SequenceNumber = binary.BigEndian.Uint16(buf[2:4])
	p.Timestamp = binary.BigEndian.Uint32(buf[4:8])
	p.SSRC = binary.BigEndian.Uint32(buf[8:12])

	p.CSRC = nil
	if cc > 0 {
		p.CSRC = make([]uint32, cc)
	}
	off := headerSize
	for i := 0; i < cc; i++ {
		p.CSRC[i] = binary.BigEndian.Uint32(buf[off : off+4])
		off += 4
	}

	p.Payload = append([]byte(nil), buf[off:]...)
	return nil
}

func boolBit(b bool, shift uint) uint8 {
	if b {
		return 1 << shift
	}
	return 0
}
