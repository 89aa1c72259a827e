package payment

import (
	"context"
)

// SourceStatus is the provider-side state of a checkout source.
type SourceStatus string

const (
	SourcePending    SourceStatus = "pending"
	SourceChargeable SourceStatus = "chargeable"
	SourcePaid       SourceStatus = "paid"
	SourceFailed     SourceStatus = "failed"
)

// SourceRequest asks the provider for a hosted checkout.
type SourceRequest struct {
	Amount    int64
	BookingID string
	Method    string
}

// Source is the provider's handle for a checkout the guest completes off-site.
type Source struct {
	Reference   string
	CheckoutURL string
	Status      SourceStatus
}

// Gateway is the payment provider client.
type Gateway interface {
	Name() string
	CreateSource(ctx context.Context, req SourceRequest) (*Source, error)
	PollStatus(ctx context.Context, reference string) (SourceStatus, error)
}
