package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// PayMongoConfig configures the hosted-checkout client.
type PayMongoConfig struct {
	BaseURL    string
	SecretKey  string
	Currency   string
	SuccessURL string
	FailedURL  string
	Timeout    time.Duration
}

// PayMongoGateway talks to a PayMongo-compatible sources API. Calls go through a
// circuit breaker so a struggling provider fails fast instead of piling up requests.
type PayMongoGateway struct {
	cfg     PayMongoConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewPayMongoGateway(cfg PayMongoConfig, log logrus.FieldLogger) *PayMongoGateway {
	if cfg.Currency == "" {
		cfg.Currency = "PHP"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "paymongo",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("payment gateway circuit breaker state changed")
		},
	})

	return &PayMongoGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
	}
}

func (g *PayMongoGateway) Name() string {
	return "paymongo"
}

type sourceEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Type     string `json:"type"`
			Status   string `json:"status"`
			Redirect struct {
				CheckoutURL string `json:"checkout_url,omitempty"`
				Success     string `json:"success"`
				Failed      string `json:"failed"`
			} `json:"redirect"`
			Metadata map[string]string `json:"metadata,omitempty"`
		} `json:"attributes"`
	} `json:"data"`
}

func (g *PayMongoGateway) CreateSource(ctx context.Context, req SourceRequest) (*Source, error) {
	method := req.Method
	if method == "" {
		method = "gcash"
	}

	var body sourceEnvelope
	body.Data.Attributes.Amount = req.Amount
	body.Data.Attributes.Currency = g.cfg.Currency
	body.Data.Attributes.Type = method
	body.Data.Attributes.Redirect.Success = g.cfg.SuccessURL
	body.Data.Attributes.Redirect.Failed = g.cfg.FailedURL
	body.Data.Attributes.Metadata = map[string]string{"booking_id": req.BookingID}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal source request failed: %w", err)
	}

	raw, err := g.do(ctx, http.MethodPost, "/sources", payload)
	if err != nil {
		return nil, err
	}

	var resp sourceEnvelope
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode source response failed: %w", err)
	}
	return &Source{
		Reference:   resp.Data.ID,
		CheckoutURL: resp.Data.Attributes.Redirect.CheckoutURL,
		Status:      mapSourceStatus(resp.Data.Attributes.Status),
	}, nil
}

func (g *PayMongoGateway) PollStatus(ctx context.Context, reference string) (SourceStatus, error) {
	raw, err := g.do(ctx, http.MethodGet, "/sources/"+reference, nil)
	if err != nil {
		return "", err
	}

	var resp sourceEnvelope
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode source response failed: %w", err)
	}
	return mapSourceStatus(resp.Data.Attributes.Status), nil
}

func (g *PayMongoGateway) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	return g.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(g.cfg.BaseURL, "/")+path, body)
		if err != nil {
			return nil, fmt.Errorf("build gateway request failed: %w", err)
		}
		req.SetBasicAuth(g.cfg.SecretKey, "")
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read gateway response failed: %w", err)
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("gateway %s %s returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(raw))
		}
		return raw, nil
	})
}

func mapSourceStatus(s string) SourceStatus {
	switch s {
	case "chargeable":
		return SourceChargeable
	case "paid", "consumed":
		return SourcePaid
	case "cancelled", "expired", "failed":
		return SourceFailed
	}
	return SourcePending
}
