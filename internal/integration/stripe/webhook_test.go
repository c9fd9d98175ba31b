package stripe

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

func parseFixture(t *testing.T, payload string) (*Event, error) {
	t.Helper()
	c := &Client{}
	return c.ParseEvent([]byte(payload))
}

func TestParseCheckoutSessionCompleted(t *testing.T) {
	payload := `{
		"id": "evt_1NG8Du2eZvKYlo2CUI79vXWy",
		"type": "checkout.session.completed",
		"created": 1686089970,
		"data": {
			"object": {
				"id": "cs_test_a1b2c3",
				"payment_intent": "pi_3MtwBwLkdIwHu7ix28a3tqPa",
				"subscription": null,
				"customer_email": null,
				"customer_details": {"email": "reader@example.com"},
				"metadata": {"order_id": "ord_01hx"}
			}
		}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1NG8Du2eZvKYlo2CUI79vXWy", ev.ID)
	assert.Equal(t, types.WebhookEventCheckoutSessionCompleted, ev.Type)
	assert.Equal(t, time.Unix(1686089970, 0).UTC(), ev.CreatedAt)

	require.NotNil(t, ev.CheckoutSession)
	assert.Equal(t, "cs_test_a1b2c3", ev.CheckoutSession.ID)
	assert.Equal(t, "pi_3MtwBwLkdIwHu7ix28a3tqPa", ev.CheckoutSession.PaymentIntentID)
	assert.Empty(t, ev.CheckoutSession.SubscriptionID)
	// customer_email is null, the details email backfills it.
	assert.Equal(t, "reader@example.com", ev.CheckoutSession.CustomerEmail)
	assert.Equal(t, "ord_01hx", ev.CheckoutSession.Metadata["order_id"])
}

func TestParseSubscriptionUpdatedExpandedReferences(t *testing.T) {
	// Expanded customer object instead of a bare id string.
	payload := `{
		"id": "evt_2",
		"type": "customer.subscription.updated",
		"created": 1686089970,
		"data": {
			"object": {
				"id": "sub_1MowQV",
				"status": "active",
				"customer": {"id": "cus_Na6dX7aXxi11N4", "object": "customer"},
				"cancel_at_period_end": false,
				"current_period_start": 1679609767,
				"current_period_end": 1682288167,
				"items": {
					"data": [
						{"price": {"id": "price_1MowQU"}}
					]
				}
			}
		}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Subscription)
	assert.Equal(t, "sub_1MowQV", ev.Subscription.ID)
	assert.Equal(t, "active", ev.Subscription.Status)
	assert.Equal(t, "cus_Na6dX7aXxi11N4", ev.Subscription.CustomerID)
	assert.Equal(t, "price_1MowQU", ev.Subscription.PriceID)
	assert.Equal(t, time.Unix(1682288167, 0).UTC(), ev.Subscription.CurrentPeriodEnd)
}

func TestParseSubscriptionPeriodsFromItems(t *testing.T) {
	// Newer API versions drop the top-level period fields; the first item
	// carries them instead.
	payload := `{
		"id": "evt_3",
		"type": "customer.subscription.created",
		"created": 1686089970,
		"data": {
			"object": {
				"id": "sub_1MowQV",
				"status": "active",
				"customer": "cus_Na6dX7aXxi11N4",
				"items": {
					"data": [
						{
							"current_period_start": 1679609767,
							"current_period_end": 1682288167,
							"price": {"id": "price_1MowQU"}
						}
					]
				}
			}
		}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Subscription)
	assert.Equal(t, time.Unix(1679609767, 0).UTC(), ev.Subscription.CurrentPeriodStart)
	assert.Equal(t, time.Unix(1682288167, 0).UTC(), ev.Subscription.CurrentPeriodEnd)
}

func TestParseInvoicePaymentFailed(t *testing.T) {
	payload := `{
		"id": "evt_4",
		"type": "invoice.payment_failed",
		"created": 1686089970,
		"data": {
			"object": {
				"id": "in_1MtHbELkdIwHu7ix",
				"subscription": "sub_1MowQV",
				"period_start": 1679609767,
				"period_end": 1682288167,
				"amount_due": 1250,
				"currency": "usd"
			}
		}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Invoice)
	assert.Equal(t, "sub_1MowQV", ev.Invoice.SubscriptionID)
	assert.True(t, ev.Invoice.AmountDue.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "usd", ev.Invoice.Currency)
}

func TestParseInvoiceSubscriptionFromLines(t *testing.T) {
	// The subscription reference can live only on the line items.
	payload := `{
		"id": "evt_5",
		"type": "invoice.payment_succeeded",
		"created": 1686089970,
		"data": {
			"object": {
				"id": "in_1MtHbELkdIwHu7ix",
				"amount_due": 1000,
				"currency": "usd",
				"lines": {
					"data": [
						{
							"subscription": "sub_1MowQV",
							"period": {"start": 1679609767, "end": 1682288167}
						}
					]
				}
			}
		}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Invoice)
	assert.Equal(t, "sub_1MowQV", ev.Invoice.SubscriptionID)
	assert.Equal(t, time.Unix(1682288167, 0).UTC(), ev.Invoice.PeriodEnd)
}

func TestParseUnhandledTypeKeepsEnvelope(t *testing.T) {
	payload := `{
		"id": "evt_6",
		"type": "payment_method.attached",
		"created": 1686089970,
		"data": {"object": {"id": "pm_1"}}
	}`

	ev, err := parseFixture(t, payload)
	require.NoError(t, err)
	assert.Equal(t, types.WebhookEventType("payment_method.attached"), ev.Type)
	assert.Nil(t, ev.CheckoutSession)
	assert.Nil(t, ev.Subscription)
	assert.Nil(t, ev.Invoice)
}

func TestParseMalformedPayloadRejected(t *testing.T) {
	_, err := parseFixture(t, `{"id": "evt_7"}`)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	_, err = parseFixture(t, `not json`)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}
