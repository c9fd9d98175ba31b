package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/integration/stripe"
)

// FakeGateway implements stripe.Gateway in process. Calls are recorded and
// failures are injected per operation; ParseEvent round-trips the neutral
// event model as JSON, so tests feed ProcessWebhook with marshaled events.
type FakeGateway struct {
	mu sync.Mutex

	// Failure injection, one per operation.
	CheckoutSessionErr error
	RefundErr          error
	CreatePriceErr     error
	SignatureErr       error

	sessionSeq int
	priceSeq   int

	CheckoutSessions []*stripe.CreateCheckoutSessionRequest
	Refunds          []*stripe.RefundRequest
	CreatedPrices    []*stripe.CreatePriceRequest
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

var _ stripe.Gateway = (*FakeGateway)(nil)

func (g *FakeGateway) CreateCustomer(ctx context.Context, req *stripe.CreateCustomerRequest) (*stripe.Customer, error) {
	return &stripe.Customer{ID: "cus_fake", Email: req.Email}, nil
}

func (g *FakeGateway) CreatePrice(ctx context.Context, req *stripe.CreatePriceRequest) (*stripe.ProviderPrice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreatePriceErr != nil {
		return nil, g.CreatePriceErr
	}
	g.priceSeq++
	g.CreatedPrices = append(g.CreatedPrices, req)
	return &stripe.ProviderPrice{
		ID:        fmt.Sprintf("price_fake_%d", g.priceSeq),
		ProductID: fmt.Sprintf("prod_fake_%d", g.priceSeq),
	}, nil
}

func (g *FakeGateway) CreateCheckoutSession(ctx context.Context, req *stripe.CreateCheckoutSessionRequest) (*stripe.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CheckoutSessionErr != nil {
		return nil, g.CheckoutSessionErr
	}
	g.sessionSeq++
	g.CheckoutSessions = append(g.CheckoutSessions, req)
	id := fmt.Sprintf("cs_fake_%d", g.sessionSeq)
	return &stripe.CheckoutSession{
		ID:  id,
		URL: "https://checkout.example.com/" + id,
	}, nil
}

func (g *FakeGateway) CreateSubscription(ctx context.Context, req *stripe.CreateSubscriptionRequest) (*stripe.ProviderSubscription, error) {
	return &stripe.ProviderSubscription{ID: "sub_fake", Status: "active", CustomerID: req.CustomerID}, nil
}

func (g *FakeGateway) Refund(ctx context.Context, req *stripe.RefundRequest) (*stripe.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return nil, g.RefundErr
	}
	g.Refunds = append(g.Refunds, req)
	return &stripe.Refund{ID: "re_fake", Status: "succeeded"}, nil
}

func (g *FakeGateway) RetrieveProduct(ctx context.Context, id string) (*stripe.ProviderProduct, error) {
	return &stripe.ProviderProduct{ID: id, Active: true}, nil
}

func (g *FakeGateway) RetrievePrice(ctx context.Context, id string) (*stripe.ProviderPrice, error) {
	return &stripe.ProviderPrice{ID: id}, nil
}

func (g *FakeGateway) RetrieveSubscription(ctx context.Context, id string) (*stripe.ProviderSubscription, error) {
	return &stripe.ProviderSubscription{ID: id, Status: "active"}, nil
}

func (g *FakeGateway) VerifyWebhookSignature(payload []byte, signature string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.SignatureErr != nil {
		return g.SignatureErr
	}
	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (g *FakeGateway) ParseEvent(payload []byte) (*stripe.Event, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	event.Raw = append([]byte(nil), payload...)
	return &event, nil
}

// RefundCount returns how many refunds the gateway has issued.
func (g *FakeGateway) RefundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Refunds)
}
