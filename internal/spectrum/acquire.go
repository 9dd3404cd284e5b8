package spectrum

import (
	"context"
	"fmt"
	"time"

	"github.com/danmuck/stsctl/internal/protocol"
	"github.com/danmuck/stsctl/internal/protocol/command"
)

// Querier is the slice of the protocol client the acquirer needs.
type Querier interface {
	Query(ctx context.Context, name string) (protocol.Reply, error)
}

// Acquirer reads numeric arrays from the daemon.
type Acquirer struct {
	q   Querier
	now func() time.Time
}

func NewAcquirer(q Querier) *Acquirer {
	return &Acquirer{q: q, now: time.Now}
}

// Read runs a parameterless command and parses its numeric reply.
func (a *Acquirer) Read(ctx context.Context, name string) ([]float64, error) {
	reply, err := a.q.Query(ctx, name)
	if err != nil {
		return nil, err
	}
	raw, err := reply.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	values, err := ParseValues(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return values, nil
}

func (a *Acquirer) Wavelengths(ctx context.Context) ([]float64, error) {
	return a.Read(ctx, command.GetWavelengths)
}

func (a *Acquirer) Values(ctx context.Context) ([]float64, error) {
	return a.Read(ctx, command.GetSpectrum)
}

// Acquire reads wavelengths then intensities and pairs them.
func (a *Acquirer) Acquire(ctx context.Context, label string) (Spectrum, error) {
	wl, err := a.Wavelengths(ctx)
	if err != nil {
		return Spectrum{}, err
	}
	values, err := a.Values(ctx)
	if err != nil {
		return Spectrum{}, err
	}
	s := Spectrum{
		Label:       label,
		Wavelengths: wl,
		Values:      values,
		CapturedAt:  a.now().UTC(),
	}
	if err := s.Validate(); err != nil {
		return Spectrum{}, err
	}
	return s, nil
}
