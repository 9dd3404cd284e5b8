package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// HeaderLen is opcode + big-endian parameter length.
	HeaderLen = 3
	// MaxParameterLen is the largest parameter the 16-bit length field can carry.
	MaxParameterLen = 0xFFFF
)

// NoParameters is the length field sent with parameterless commands.
var NoParameters = [2]byte{0x00, 0x00}

var (
	ErrParameterTooLarge = errors.New("frame: parameter too large")
	ErrShortHeader       = errors.New("frame: short request header")
)

// Parameter is the optional value attached to "set"-style commands.
// The zero value is an absent parameter.
type Parameter struct {
	value   string
	present bool
}

// NoParam is the absent parameter.
var NoParam = Parameter{}

// Param renders v in its canonical string form. An empty value is still
// present but encodes as [op, 0, 0], the same bytes as no parameter.
func Param(v any) Parameter {
	return Parameter{value: canonical(v), present: true}
}

func (p Parameter) Present() bool {
	return p.present
}

func (p Parameter) String() string {
	return p.value
}

// Len is the encoded parameter length in bytes.
func (p Parameter) Len() int {
	return len(p.value)
}

func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// Encode builds the request frame: opcode, big-endian length, parameter bytes.
func Encode(opcode byte, p Parameter) ([]byte, error) {
	if !p.present {
		return []byte{opcode, NoParameters[0], NoParameters[1]}, nil
	}
	n := len(p.value)
	if n > MaxParameterLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrParameterTooLarge, n, MaxParameterLen)
	}
	buf := make([]byte, HeaderLen+n)
	buf[0] = opcode
	binary.BigEndian.PutUint16(buf[1:3], uint16(n))
	copy(buf[HeaderLen:], p.value)
	return buf, nil
}

// Request is one decoded client frame, as seen by the daemon.
type Request struct {
	Opcode       byte
	Parameter    []byte
	HasParameter bool
}

// ReadRequest decodes a single client frame from r.
func ReadRequest(r io.Reader) (Request, error) {
	var head [HeaderLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Request{}, ErrShortHeader
		}
		return Request{}, err
	}
	n := binary.BigEndian.Uint16(head[1:3])
	req := Request{Opcode: head[0], HasParameter: n > 0}
	if n == 0 {
		return req, nil
	}
	req.Parameter = make([]byte, n)
	if _, err := io.ReadFull(r, req.Parameter); err != nil {
		if errors.Is(err, io.EOF) {
			return Request{}, io.ErrUnexpectedEOF
		}
		return Request{}, err
	}
	return req, nil
}

// WriteRequest encodes and writes one frame to w.
func WriteRequest(w io.Writer, opcode byte, p Parameter) error {
	buf, err := Encode(opcode, p)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
