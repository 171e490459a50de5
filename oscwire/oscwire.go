// Package oscwire implements the OSC 1.0 (plus the common T/F boolean
// extension) argument encoding used by the Eos console's control
// channel: an address pattern, a type-tag string, and zero or more
// 4-byte-aligned typed arguments. This is the "OSC argument encoder and
// decoder" the sync engine assumes as an external collaborator; it is
// vendored here as a minimal, real implementation so the module builds
// and runs end to end.
/*
 * Copyright (c) 2024, Electronic Theatre Controls, Inc.
 */
package oscwire

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArgType is the OSC type tag of one argument.
type ArgType byte

const (
	TypeInt32 ArgType = 'i'
	TypeFloat ArgType = 'f'
	TypeString ArgType = 's'
	TypeBlob   ArgType = 'b'
	TypeTrue   ArgType = 'T'
	TypeFalse  ArgType = 'F'
)

// Arg is one typed OSC argument.
type Arg struct {
	Type ArgType
	I    int32
	F    float32
	S    string
	Blob []byte
}

func Int32Arg(v int32) Arg    { return Arg{Type: TypeInt32, I: v} }
func FloatArg(v float32) Arg  { return Arg{Type: TypeFloat, F: v} }
func StringArg(v string) Arg  { return Arg{Type: TypeString, S: v} }
func BlobArg(v []byte) Arg    { return Arg{Type: TypeBlob, Blob: v} }
func BoolArg(v bool) Arg {
	if v {
		return Arg{Type: TypeTrue}
	}
	return Arg{Type: TypeFalse}
}

// IsNumeric reports whether the argument is an int32 or float32 — the
// OSC types that parse as a "double" per the console protocol's notify
// argument convention.
func (a Arg) IsNumeric() bool { return a.Type == TypeInt32 || a.Type == TypeFloat }

// AsString renders the argument's value as a string, defaulting to ""
// for types with no natural string form.
func (a Arg) AsString() string {
	switch a.Type {
	case TypeString:
		return a.S
	case TypeInt32:
		return strconv.FormatInt(int64(a.I), 10)
	case TypeFloat:
		return strconv.FormatFloat(float64(a.F), 'g', -1, 32)
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	default:
		return ""
	}
}

// Message is a parsed or to-be-built OSC message.
type Message struct {
	Path string
	Args []Arg
}

// NewMessage builds the wire bytes for an OSC message with the given
// address pattern and arguments.
func NewMessage(path string, args ...Arg) []byte {
	var buf []byte
	buf = appendOSCString(buf, path)

	tags := make([]byte, 0, len(args)+1)
	tags = append(tags, ',')
	for _, a := range args {
		tags = append(tags, byte(a.Type))
	}
	buf = appendOSCString(buf, string(tags))

	for _, a := range args {
		switch a.Type {
		case TypeInt32:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(a.I))
			buf = append(buf, b[:]...)
		case TypeFloat:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], math.Float32bits(a.F))
			buf = append(buf, b[:]...)
		case TypeString:
			buf = appendOSCString(buf, a.S)
		case TypeBlob:
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(len(a.Blob)))
			buf = append(buf, b[:]...)
			buf = append(buf, a.Blob...)
			buf = padTo4(buf)
		case TypeTrue, TypeFalse:
			// no argument bytes
		}
	}
	return buf
}

// Parse decodes an OSC message from a complete packet (no length
// prefix — framing is handled by the transport package).
func Parse(data []byte) (Message, error) {
	path, rest, err := readOSCString(data)
	if err != nil {
		return Message{}, fmt.Errorf("oscwire: address: %w", err)
	}
	if path == "" || path[0] != '/' {
		return Message{}, fmt.Errorf("oscwire: invalid address %q", path)
	}

	tagStr, rest, err := readOSCString(rest)
	if err != nil {
		return Message{}, fmt.Errorf("oscwire: type tags: %w", err)
	}
	if tagStr == "" || tagStr[0] != ',' {
		// no type tag string: a bare address with no arguments
		return Message{Path: path}, nil
	}
	tags := tagStr[1:]

	args := make([]Arg, 0, len(tags))
	for _, tag := range []byte(tags) {
		switch ArgType(tag) {
		case TypeInt32:
			if len(rest) < 4 {
				return Message{}, fmt.Errorf("oscwire: truncated int32 arg")
			}
			v := int32(binary.BigEndian.Uint32(rest[:4]))
			rest = rest[4:]
			args = append(args, Int32Arg(v))
		case TypeFloat:
			if len(rest) < 4 {
				return Message{}, fmt.Errorf("oscwire: truncated float arg")
			}
			v := math.Float32frombits(binary.BigEndian.Uint32(rest[:4]))
			rest = rest[4:]
			args = append(args, FloatArg(v))
		case TypeString:
			var s string
			var err error
			s, rest, err = readOSCString(rest)
			if err != nil {
				return Message{}, fmt.Errorf("oscwire: string arg: %w", err)
			}
			args = append(args, StringArg(s))
		case TypeBlob:
			if len(rest) < 4 {
				return Message{}, fmt.Errorf("oscwire: truncated blob length")
			}
			n := int(binary.BigEndian.Uint32(rest[:4]))
			rest = rest[4:]
			if n < 0 || len(rest) < n {
				return Message{}, fmt.Errorf("oscwire: truncated blob data")
			}
			blob := make([]byte, n)
			copy(blob, rest[:n])
			rest = rest[n:]
			pad := (4 - n%4) % 4
			if len(rest) < pad {
				return Message{}, fmt.Errorf("oscwire: truncated blob padding")
			}
			rest = rest[pad:]
			args = append(args, BlobArg(blob))
		case TypeTrue:
			args = append(args, BoolArg(true))
		case TypeFalse:
			args = append(args, BoolArg(false))
		default:
			return Message{}, fmt.Errorf("oscwire: unsupported type tag %q", tag)
		}
	}
	return Message{Path: path, Args: args}, nil
}

func appendOSCString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	return padTo4(buf)
}

// padTo4 appends null bytes until buf's length is a multiple of 4.
func padTo4(buf []byte) []byte {
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func readOSCString(data []byte) (string, []byte, error) {
	idx := -1
	for i, b := range data {
		if b == 0 {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", nil, fmt.Errorf("unterminated OSC string")
	}
	s := string(data[:idx])
	total := idx + 1
	for total%4 != 0 {
		total++
	}
	if total > len(data) {
		return "", nil, fmt.Errorf("truncated OSC string padding")
	}
	return s, data[total:], nil
}

// HasPrefix reports whether path starts with prefix, for classifying
// inbound commands by address prefix.
func HasPrefix(path, prefix string) bool { return strings.HasPrefix(path, prefix) }
