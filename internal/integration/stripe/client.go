package stripe

import (
	"context"

	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/inkpress/inkpress/internal/config"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
)

// Gateway is the payment-provider collaborator contract. Every call is a
// fallible remote call with a bounded timeout; callers retry with backoff
// and an idempotency key, never blindly.
type Gateway interface {
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error)
	CreatePrice(ctx context.Context, req *CreatePriceRequest) (*ProviderPrice, error)
	CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*CheckoutSession, error)
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*ProviderSubscription, error)
	Refund(ctx context.Context, req *RefundRequest) (*Refund, error)
	RetrieveProduct(ctx context.Context, id string) (*ProviderProduct, error)
	RetrievePrice(ctx context.Context, id string) (*ProviderPrice, error)
	RetrieveSubscription(ctx context.Context, id string) (*ProviderSubscription, error)
	// VerifyWebhookSignature rejects payloads that do not carry a valid
	// signature. Unverifiable payloads never reach the reconciler.
	VerifyWebhookSignature(payload []byte, signature string) error
	// ParseEvent decodes a verified payload into the neutral event model.
	ParseEvent(payload []byte) (*Event, error)
}

// Client implements Gateway on the Stripe SDK. The API key is held per
// instance, not on the SDK's package-level global, so tests and multiple
// environments can hold independent clients.
type Client struct {
	api    *client.API
	cfg    config.StripeConfig
	logger *logger.Logger
}

func NewClient(cfg *config.Configuration, log *logger.Logger) Gateway {
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &Client{
		api:    api,
		cfg:    cfg.Stripe,
		logger: log,
	}
}

// callContext bounds the provider call. On expiry the outcome is unknown
// and the webhook, not the error, is the source of truth.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.CallTimeout)
}

func (c *Client) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*Customer, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.CustomerParams{
		Email: stripesdk.String(req.Email),
	}
	params.Context = ctx
	if req.Name != "" {
		params.Name = stripesdk.String(req.Name)
	}
	if req.UserID != "" {
		params.AddMetadata("user_id", req.UserID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	cust, err := c.api.Customers.New(params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to create provider customer")
	}
	return &Customer{ID: cust.ID, Email: cust.Email}, nil
}

func (c *Client) CreatePrice(ctx context.Context, req *CreatePriceRequest) (*ProviderPrice, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.PriceParams{
		Currency:   stripesdk.String(req.Currency),
		UnitAmount: stripesdk.Int64(toMinorUnits(req.Amount)),
		ProductData: &stripesdk.PriceProductDataParams{
			Name: stripesdk.String(req.ProductName),
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.LocalPriceID != "" {
		params.AddMetadata("price_id", req.LocalPriceID)
	}
	if req.Recurring {
		params.Recurring = &stripesdk.PriceRecurringParams{
			Interval:      stripesdk.String(providerInterval(req.Interval)),
			IntervalCount: stripesdk.Int64(int64(req.IntervalCount)),
		}
	}

	p, err := c.api.Prices.New(params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to create provider price")
	}
	out := &ProviderPrice{ID: p.ID}
	if p.Product != nil {
		out.ProductID = p.Product.ID
	}
	return out, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req *CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	mode := stripesdk.CheckoutSessionModePayment
	if req.Subscription {
		mode = stripesdk.CheckoutSessionModeSubscription
	}

	params := &stripesdk.CheckoutSessionParams{
		Mode:       stripesdk.String(string(mode)),
		SuccessURL: stripesdk.String(req.SuccessURL),
		CancelURL:  stripesdk.String(req.CancelURL),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripesdk.String(req.CustomerEmail)
	}
	if req.OrderID != "" {
		params.AddMetadata("order_id", req.OrderID)
	}
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripesdk.CheckoutSessionLineItemParams{
			Price:    stripesdk.String(li.ProviderPriceID),
			Quantity: stripesdk.Int64(li.Quantity),
		})
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to create checkout session")
	}

	out := &CheckoutSession{ID: sess.ID, URL: sess.URL}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

func (c *Client) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*ProviderSubscription, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.SubscriptionParams{
		Customer: stripesdk.String(req.CustomerID),
		Items: []*stripesdk.SubscriptionItemsParams{
			{Price: stripesdk.String(req.ProviderPriceID)},
		},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.TrialDays > 0 {
		params.TrialPeriodDays = stripesdk.Int64(int64(req.TrialDays))
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to create provider subscription")
	}
	return fromProviderSubscription(sub), nil
}

func (c *Client) Refund(ctx context.Context, req *RefundRequest) (*Refund, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.RefundParams{
		PaymentIntent: stripesdk.String(req.PaymentIntentID),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if !req.Amount.IsZero() {
		params.Amount = stripesdk.Int64(toMinorUnits(req.Amount))
	}
	if req.Reason != "" {
		params.Reason = stripesdk.String(req.Reason)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to create refund")
	}
	return &Refund{ID: refund.ID, Status: string(refund.Status)}, nil
}

func (c *Client) RetrieveProduct(ctx context.Context, id string) (*ProviderProduct, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.ProductParams{}
	params.Context = ctx
	p, err := c.api.Products.Get(id, params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to retrieve provider product")
	}
	return &ProviderProduct{ID: p.ID, Name: p.Name, Active: p.Active}, nil
}

func (c *Client) RetrievePrice(ctx context.Context, id string) (*ProviderPrice, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.PriceParams{}
	params.Context = ctx
	p, err := c.api.Prices.Get(id, params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to retrieve provider price")
	}
	out := &ProviderPrice{ID: p.ID}
	if p.Product != nil {
		out.ProductID = p.Product.ID
	}
	return out, nil
}

func (c *Client) RetrieveSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &stripesdk.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, c.wrapErr(err, "failed to retrieve provider subscription")
	}
	return fromProviderSubscription(sub), nil
}

func (c *Client) wrapErr(err error, msg string) error {
	c.logger.Errorw(msg, "error", err)
	return ierr.WithError(mapProviderError(err)).
		WithHint("Payment provider call failed").
		Mark(classifyProviderError(err))
}
