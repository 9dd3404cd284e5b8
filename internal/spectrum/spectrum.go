// Package spectrum turns raw daemon payloads into numeric arrays.
//
// The daemon prefixes numeric replies with a fixed 6-byte header and ends
// them with one trailing byte; the values in between are whitespace
// separated. That convention lives here, not in the protocol client.
package spectrum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	PrefixLen  = 6
	TrailerLen = 1
)

var (
	ErrShortResponse  = errors.New("spectrum: response shorter than framing")
	ErrLengthMismatch = errors.New("spectrum: wavelengths and values differ in length")
	ErrEmpty          = errors.New("spectrum: no samples")
)

// ValueError reports a token that is not a number.
type ValueError struct {
	Index int
	Token string
	Cause error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("spectrum: value %d %q: %v", e.Index, e.Token, e.Cause)
}

func (e *ValueError) Unwrap() error { return e.Cause }

// ParseValues strips the reply framing and parses the whitespace separated floats.
func ParseValues(raw []byte) ([]float64, error) {
	if len(raw) < PrefixLen+TrailerLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(raw))
	}
	fields := strings.Fields(string(raw[PrefixLen : len(raw)-TrailerLen]))
	out := make([]float64, 0, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &ValueError{Index: i, Token: tok, Cause: err}
		}
		out = append(out, v)
	}
	return out, nil
}

// Spectrum is one acquisition: intensity per wavelength.
type Spectrum struct {
	ID          int64     `json:"id,omitempty"`
	Label       string    `json:"label,omitempty"`
	Wavelengths []float64 `json:"wavelengths"`
	Values      []float64 `json:"values"`
	CapturedAt  time.Time `json:"captured_at"`
}

func (s Spectrum) Validate() error {
	if len(s.Values) == 0 {
		return ErrEmpty
	}
	if len(s.Wavelengths) != len(s.Values) {
		return fmt.Errorf("%w: %d wavelengths, %d values", ErrLengthMismatch, len(s.Wavelengths), len(s.Values))
	}
	return nil
}

// Pair is one (wavelength, value) point.
type Pair struct {
	Wavelength float64 `json:"wavelength"`
	Value      float64 `json:"value"`
}

func (s Spectrum) Pairs() []Pair {
	n := min(len(s.Wavelengths), len(s.Values))
	out := make([]Pair, n)
	for i := 0; i < n; i++ {
		out[i] = Pair{Wavelength: s.Wavelengths[i], Value: s.Values[i]}
	}
	return out
}

// FormatValues is the text form used for persistence.
func FormatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// ParseText is the inverse of FormatValues.
func ParseText(text string) ([]float64, error) {
	fields := strings.Fields(text)
	out := make([]float64, 0, len(fields))
	for i, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, &ValueError{Index: i, Token: tok, Cause: err}
		}
		out = append(out, v)
	}
	return out, nil
}
