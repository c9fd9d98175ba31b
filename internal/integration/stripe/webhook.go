package stripe

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82/webhook"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// VerifyWebhookSignature checks the Stripe-Signature header against the
// endpoint's signing secret. Signature verification is the authentication
// mechanism for the webhook endpoint.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) error {
	_, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Webhook signature verification failed").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// eventEnvelope is the provider's outer event shape. Parsing uses local
// structs rather than SDK types so stored payloads from older API versions
// keep decoding after SDK upgrades.
type eventEnvelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent jsonID            `json:"payment_intent"`
	Subscription  jsonID            `json:"subscription"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

type subscriptionObject struct {
	ID                 string            `json:"id"`
	Status             string            `json:"status"`
	Customer           jsonID            `json:"customer"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoiceObject struct {
	ID           string `json:"id"`
	Subscription jsonID `json:"subscription"`
	PeriodStart  int64  `json:"period_start"`
	PeriodEnd    int64  `json:"period_end"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Lines        struct {
		Data []struct {
			Subscription jsonID `json:"subscription"`
			Period       struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

// jsonID accepts both the expanded-object and bare-string forms the
// provider uses for references.
type jsonID string

func (j *jsonID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*j = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*j = jsonID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*j = jsonID(obj.ID)
	return nil
}

// ParseEvent decodes a verified payload into the neutral event model.
func (c *Client) ParseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}
	if env.ID == "" || env.Type == "" {
		return nil, ierr.NewError("webhook payload missing id or type").
			WithHint("Malformed webhook payload").
			Mark(ierr.ErrValidation)
	}

	ev := &Event{
		ID:        env.ID,
		Type:      types.WebhookEventType(env.Type),
		CreatedAt: time.Unix(env.Created, 0).UTC(),
		Raw:       json.RawMessage(payload),
	}

	switch ev.Type {
	case types.WebhookEventCheckoutSessionCompleted:
		var obj checkoutSessionObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, parseErr(err)
		}
		email := obj.CustomerEmail
		if email == "" && obj.CustomerDetails != nil {
			email = obj.CustomerDetails.Email
		}
		ev.CheckoutSession = &CheckoutSessionEventData{
			ID:              obj.ID,
			PaymentIntentID: string(obj.PaymentIntent),
			SubscriptionID:  string(obj.Subscription),
			CustomerEmail:   email,
			Metadata:        obj.Metadata,
		}

	case types.WebhookEventSubscriptionCreated,
		types.WebhookEventSubscriptionUpdated,
		types.WebhookEventSubscriptionDeleted:
		var obj subscriptionObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, parseErr(err)
		}
		data := &SubscriptionEventData{
			ID:                 obj.ID,
			Status:             obj.Status,
			CustomerID:         string(obj.Customer),
			CancelAtPeriodEnd:  obj.CancelAtPeriodEnd,
			CurrentPeriodStart: time.Unix(obj.CurrentPeriodStart, 0).UTC(),
			CurrentPeriodEnd:   time.Unix(obj.CurrentPeriodEnd, 0).UTC(),
			Metadata:           obj.Metadata,
		}
		// Newer API versions carry periods on the items instead
		if len(obj.Items.Data) > 0 {
			item := obj.Items.Data[0]
			data.PriceID = item.Price.ID
			if obj.CurrentPeriodEnd == 0 && item.CurrentPeriodEnd != 0 {
				data.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
				data.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
			}
		}
		ev.Subscription = data

	case types.WebhookEventInvoicePaymentSucceeded,
		types.WebhookEventInvoicePaymentFailed:
		var obj invoiceObject
		if err := json.Unmarshal(env.Data.Object, &obj); err != nil {
			return nil, parseErr(err)
		}
		data := &InvoiceEventData{
			ID:             obj.ID,
			SubscriptionID: string(obj.Subscription),
			PeriodStart:    time.Unix(obj.PeriodStart, 0).UTC(),
			PeriodEnd:      time.Unix(obj.PeriodEnd, 0).UTC(),
			AmountDue:      decimal.NewFromInt(obj.AmountDue).Div(decimal.NewFromInt(100)),
			Currency:       obj.Currency,
		}
		if data.SubscriptionID == "" && len(obj.Lines.Data) > 0 {
			line := obj.Lines.Data[0]
			data.SubscriptionID = string(line.Subscription)
			if line.Period.End != 0 {
				data.PeriodStart = time.Unix(line.Period.Start, 0).UTC()
				data.PeriodEnd = time.Unix(line.Period.End, 0).UTC()
			}
		}
		ev.Invoice = data
	}

	return ev, nil
}

func parseErr(err error) error {
	return ierr.WithError(err).
		WithHint("Malformed webhook event object").
		Mark(ierr.ErrValidation)
}
