package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SandboxGateway is an in-process provider for development and tests.
// Sources stay pending until Settle is called, unless autoPay is set.
type SandboxGateway struct {
	mu      sync.Mutex
	autoPay bool
	sources map[string]SourceStatus
	fail    error
}

func NewSandboxGateway(autoPay bool) *SandboxGateway {
	return &SandboxGateway{autoPay: autoPay, sources: make(map[string]SourceStatus)}
}

func (g *SandboxGateway) Name() string {
	return "sandbox"
}

func (g *SandboxGateway) CreateSource(_ context.Context, req SourceRequest) (*Source, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fail != nil {
		return nil, g.fail
	}
	ref := "src_" + uuid.NewString()
	g.sources[ref] = SourcePending
	return &Source{
		Reference:   ref,
		CheckoutURL: fmt.Sprintf("https://sandbox.invalid/checkout/%s?booking=%s", ref, req.BookingID),
		Status:      SourcePending,
	}, nil
}

func (g *SandboxGateway) PollStatus(_ context.Context, reference string) (SourceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fail != nil {
		return "", g.fail
	}
	status, ok := g.sources[reference]
	if !ok {
		return "", fmt.Errorf("unknown source %q", reference)
	}
	if g.autoPay && status == SourcePending {
		return SourcePaid, nil
	}
	return status, nil
}

// Settle moves a source to a final provider status.
func (g *SandboxGateway) Settle(reference string, status SourceStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sources[reference] = status
}

// FailWith makes every subsequent call return err; nil restores normal behavior.
func (g *SandboxGateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}
