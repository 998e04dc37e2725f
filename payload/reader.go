// SPDX-License-Identifier: LGPL-3.0-or-later

package payload

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// PayloadReader holds a cursor into a Payload's Parameters region and
// reads one length-prefixed record at a time.
type PayloadReader struct {
	data   []byte
	cursor int
}

// NewPayloadReader returns a reader positioned at the start of p's
// parameters.
func NewPayloadReader(p Payload) *PayloadReader {
	return &PayloadReader{data: p.Parameters}
}

// HasMore reports whether bytes remain between the cursor and the end of
// the parameters region.
func (r *PayloadReader) HasMore() bool {
	return r.cursor < len(r.data)
}

// PeekNextParamSize returns the length field of the next record without
// advancing the cursor.
func (r *PayloadReader) PeekNextParamSize() (uint32, error) {
	if len(r.data)-r.cursor < 4 {
		return 0, fmt.Errorf("peek param size: %w", ErrTruncated)
	}
	return binary.LittleEndian.Uint32(r.data[r.cursor : r.cursor+4]), nil
}

// nextRecord advances the cursor past one length-prefixed record and
// returns its value bytes.
func (r *PayloadReader) nextRecord() ([]byte, error) {
	length, err := r.PeekNextParamSize()
	if err != nil {
		return nil, err
	}
	start := r.cursor + 4
	end := start + int(length)
	if end > len(r.data) {
		return nil, fmt.Errorf("read param: %w", ErrTruncated)
	}
	r.cursor = end
	return r.data[start:end], nil
}

// ReadBytes reads the next record as raw bytes.
func (r *PayloadReader) ReadBytes() ([]byte, error) {
	return r.nextRecord()
}

// ReadString reads the next record as a UTF-8 string.
func (r *PayloadReader) ReadString() (string, error) {
	v, err := r.nextRecord()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(v) {
		return "", fmt.Errorf("read string: %w", ErrInvalidUTF8)
	}
	return string(v), nil
}

// ReadBool reads the next record as a boolean: exactly one byte, 0x00 or
// 0x01.
func (r *PayloadReader) ReadBool() (bool, error) {
	v, err := r.nextRecord()
	if err != nil {
		return false, err
	}
	if len(v) != 1 {
		return false, fmt.Errorf("read bool: %w", ErrWidthMismatch)
	}
	switch v[0] {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, fmt.Errorf("read bool: %w", ErrInvalidBool)
	}
}

// ReadInt8 reads the next record as a signed 8-bit integer.
func (r *PayloadReader) ReadInt8() (int8, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("read int8: %w", ErrWidthMismatch)
	}
	return int8(v[0]), nil
}

// ReadInt16 reads the next record as a little-endian signed 16-bit integer.
func (r *PayloadReader) ReadInt16() (int16, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 2 {
		return 0, fmt.Errorf("read int16: %w", ErrWidthMismatch)
	}
	return int16(binary.LittleEndian.Uint16(v)), nil
}

// ReadInt32 reads the next record as a little-endian signed 32-bit integer.
func (r *PayloadReader) ReadInt32() (int32, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("read int32: %w", ErrWidthMismatch)
	}
	return int32(binary.LittleEndian.Uint32(v)), nil
}

// ReadInt64 reads the next record as a little-endian signed 64-bit integer.
func (r *PayloadReader) ReadInt64() (int64, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("read int64: %w", ErrWidthMismatch)
	}
	return int64(binary.LittleEndian.Uint64(v)), nil
}

// ReadUint8 reads the next record as an unsigned 8-bit integer.
func (r *PayloadReader) ReadUint8() (uint8, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 1 {
		return 0, fmt.Errorf("read uint8: %w", ErrWidthMismatch)
	}
	return v[0], nil
}

// ReadUint16 reads the next record as a little-endian unsigned 16-bit
// integer.
func (r *PayloadReader) ReadUint16() (uint16, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 2 {
		return 0, fmt.Errorf("read uint16: %w", ErrWidthMismatch)
	}
	return binary.LittleEndian.Uint16(v), nil
}

// ReadUint32 reads the next record as a little-endian unsigned 32-bit
// integer.
func (r *PayloadReader) ReadUint32() (uint32, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("read uint32: %w", ErrWidthMismatch)
	}
	return binary.LittleEndian.Uint32(v), nil
}

// ReadUint64 reads the next record as a little-endian unsigned 64-bit
// integer.
func (r *PayloadReader) ReadUint64() (uint64, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("read uint64: %w", ErrWidthMismatch)
	}
	return binary.LittleEndian.Uint64(v), nil
}

// ReadFloat32 reads the next record as an IEEE-754 binary32.
func (r *PayloadReader) ReadFloat32() (float32, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("read float32: %w", ErrWidthMismatch)
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v)), nil
}

// ReadFloat64 reads the next record as an IEEE-754 binary64.
func (r *PayloadReader) ReadFloat64() (float64, error) {
	v, err := r.nextRecord()
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("read float64: %w", ErrWidthMismatch)
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(v)), nil
}

// ReadInt dispatches on the next record's width (1/2/4/8 bytes) and
// returns it sign-extended to int64.
func (r *PayloadReader) ReadInt() (int64, error) {
	size, err := r.PeekNextParamSize()
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		v, err := r.ReadInt8()
		return int64(v), err
	case 2:
		v, err := r.ReadInt16()
		return int64(v), err
	case 4:
		v, err := r.ReadInt32()
		return int64(v), err
	case 8:
		return r.ReadInt64()
	default:
		return 0, fmt.Errorf("read int: %w", ErrWidthMismatch)
	}
}

// ReadUint dispatches on the next record's width (1/2/4/8 bytes) and
// returns it zero-extended to uint64.
func (r *PayloadReader) ReadUint() (uint64, error) {
	size, err := r.PeekNextParamSize()
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	case 8:
		return r.ReadUint64()
	default:
		return 0, fmt.Errorf("read uint: %w", ErrWidthMismatch)
	}
}

// ReadFloat dispatches on the next record's width (4/8 bytes) and returns
// it widened to float64.
func (r *PayloadReader) ReadFloat() (float64, error) {
	size, err := r.PeekNextParamSize()
	if err != nil {
		return 0, err
	}
	switch size {
	case 4:
		v, err := r.ReadFloat32()
		return float64(v), err
	case 8:
		return r.ReadFloat64()
	default:
		return 0, fmt.Errorf("read float: %w", ErrWidthMismatch)
	}
}
