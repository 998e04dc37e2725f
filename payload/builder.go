// SPDX-License-Identifier: LGPL-3.0-or-later

package payload

import (
	"encoding/binary"
	"math"
)

// PayloadBuilder constructs a Payload imperatively: each Add* call appends
// one length-prefixed parameter record. The wire carries no type tag, only
// length, so the Add* methods are monomorphic rather than one generic
// overload — a surface-level choice per the codec's design notes, not a
// wire-format one.
type PayloadBuilder struct {
	opCode uint16
	buf    []byte
}

// NewPayloadBuilder starts a builder for the given opcode. A builder is
// single-use: call Build once and discard it.
func NewPayloadBuilder(opCode uint16) *PayloadBuilder {
	return &PayloadBuilder{opCode: opCode}
}

func (b *PayloadBuilder) appendRecord(value []byte) {
	header := make([]byte, 4)
	binary.LittleEndian.PutUint32(header, uint32(len(value)))
	b.buf = append(b.buf, header...)
	b.buf = append(b.buf, value...)
}

// AddBytes appends a raw-byte parameter.
func (b *PayloadBuilder) AddBytes(v []byte) *PayloadBuilder {
	b.appendRecord(v)
	return b
}

// AddString appends a UTF-8 string parameter, no NUL terminator.
func (b *PayloadBuilder) AddString(v string) *PayloadBuilder {
	b.appendRecord([]byte(v))
	return b
}

// AddBool appends a single-byte boolean parameter.
func (b *PayloadBuilder) AddBool(v bool) *PayloadBuilder {
	if v {
		b.appendRecord([]byte{0x01})
	} else {
		b.appendRecord([]byte{0x00})
	}
	return b
}

// AddInt8 appends a signed 8-bit integer parameter.
func (b *PayloadBuilder) AddInt8(v int8) *PayloadBuilder {
	b.appendRecord([]byte{byte(v)})
	return b
}

// AddInt16 appends a signed 16-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddInt16(v int16) *PayloadBuilder {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	b.appendRecord(buf)
	return b
}

// AddInt32 appends a signed 32-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddInt32(v int32) *PayloadBuilder {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	b.appendRecord(buf)
	return b
}

// AddInt64 appends a signed 64-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddInt64(v int64) *PayloadBuilder {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	b.appendRecord(buf)
	return b
}

// AddUint8 appends an unsigned 8-bit integer parameter.
func (b *PayloadBuilder) AddUint8(v uint8) *PayloadBuilder {
	b.appendRecord([]byte{v})
	return b
}

// AddUint16 appends an unsigned 16-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddUint16(v uint16) *PayloadBuilder {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	b.appendRecord(buf)
	return b
}

// AddUint32 appends an unsigned 32-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddUint32(v uint32) *PayloadBuilder {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	b.appendRecord(buf)
	return b
}

// AddUint64 appends an unsigned 64-bit integer parameter, little-endian.
func (b *PayloadBuilder) AddUint64(v uint64) *PayloadBuilder {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	b.appendRecord(buf)
	return b
}

// AddFloat32 appends an IEEE-754 binary32 parameter, little-endian.
func (b *PayloadBuilder) AddFloat32(v float32) *PayloadBuilder {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	b.appendRecord(buf)
	return b
}

// AddFloat64 appends an IEEE-754 binary64 parameter, little-endian.
func (b *PayloadBuilder) AddFloat64(v float64) *PayloadBuilder {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	b.appendRecord(buf)
	return b
}

// Build returns the finished Payload.
func (b *PayloadBuilder) Build() Payload {
	return Payload{OpCode: b.opCode, Parameters: b.buf}
}
