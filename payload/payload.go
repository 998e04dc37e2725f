// SPDX-License-Identifier: LGPL-3.0-or-later

// Package payload implements ObscuraProto's self-describing, length-
// prefixed parameter codec: the plaintext carried inside every record
// frame. A Payload pairs an application opcode with a flat byte region
// that PayloadBuilder writes and PayloadReader reads, one length-prefixed
// parameter at a time.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors returned by the codec. WidthMismatch, Truncated, InvalidBool and
// InvalidUtf8 are all reader-side; Payload.Deserialize only ever returns
// ErrMalformedPayload.
var (
	ErrMalformedPayload = errors.New("payload: malformed payload")
	ErrTruncated        = errors.New("payload: truncated parameter")
	ErrWidthMismatch    = errors.New("payload: width mismatch")
	ErrInvalidBool      = errors.New("payload: invalid bool encoding")
	ErrInvalidUTF8      = errors.New("payload: invalid utf-8 string")
)

// Payload is the plaintext carried inside one record frame: an
// application-defined opcode plus an opaque, self-describing parameter
// list.
type Payload struct {
	OpCode     uint16
	Parameters []byte
}

// Serialize emits the wire layout:
//
//	u16  op_code
//	byte parameters[...]
func (p Payload) Serialize() []byte {
	out := make([]byte, 2+len(p.Parameters))
	binary.BigEndian.PutUint16(out[0:2], p.OpCode)
	copy(out[2:], p.Parameters)
	return out
}

// Deserialize is the inverse of Serialize. The parameters region is
// captured as an opaque tail; its internal structure is validated lazily
// by PayloadReader as each parameter is read.
func Deserialize(data []byte) (Payload, error) {
	if len(data) < 2 {
		return Payload{}, fmt.Errorf("payload: %w", ErrMalformedPayload)
	}
	opCode := binary.BigEndian.Uint16(data[0:2])
	params := make([]byte, len(data)-2)
	copy(params, data[2:])
	return Payload{OpCode: opCode, Parameters: params}, nil
}
