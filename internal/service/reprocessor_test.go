package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/price"
	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/domain/webhookevent"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type ReprocessorSuite struct {
	testutil.BaseServiceTestSuite
	reprocessor *Reprocessor
}

func TestReprocessor(t *testing.T) {
	suite.Run(t, new(ReprocessorSuite))
}

func (s *ReprocessorSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := ServiceParams{
		Logger:           s.Log,
		Config:           s.Cfg,
		DB:               s.DB,
		ProductRepo:      s.ProductStore,
		PriceRepo:        s.PriceStore,
		OrderRepo:        s.OrderStore,
		SubRepo:          s.SubStore,
		EntitlementRepo:  s.EntitlementStore,
		InventoryRepo:    s.InventoryStore,
		WebhookEventRepo: s.WebhookEventStore,
		CatalogRepo:      s.CatalogStore,
		Gateway:          s.Gateway,
	}
	s.reprocessor = NewReprocessor(params, NewWebhookService(params))
}

// seedPendingOrder creates the product, price and pending order the stored
// checkout completion settles.
func (s *ReprocessorSuite) seedPendingOrder() {
	prod := &product.Product{
		ID:        "prod_1",
		Name:      "Issue #1",
		Type:      types.ProductTypeSingleIssue,
		WorkID:    "work_1",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))

	p := &price.Price{
		ID:              "price_1",
		ProductID:       prod.ID,
		Currency:        "usd",
		Amount:          decimal.NewFromInt(5),
		Type:            types.PriceTypeOneTime,
		InventoryPolicy: types.InventoryPolicyAllow,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.PriceStore.Create(s.GetContext(), p))

	o := &order.Order{
		ID:                "ord_1",
		UserID:            "user_1",
		Provider:          types.PaymentProviderStripe,
		ProviderSessionID: "cs_1",
		OrderStatus:       types.OrderStatusPending,
		Currency:          "usd",
		Total:             decimal.NewFromInt(5),
		LineItems: []*order.LineItem{
			{ID: "oli_1", OrderID: "ord_1", PriceID: p.ID, ProductID: prod.ID, Quantity: 1, Amount: decimal.NewFromInt(5)},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.OrderStore.Create(s.GetContext(), o))
}

func (s *ReprocessorSuite) completionPayload(eventID string) []byte {
	payload, err := json.Marshal(&stripe.Event{
		ID:        eventID,
		Type:      types.WebhookEventCheckoutSessionCompleted,
		CreatedAt: time.Now().UTC(),
		CheckoutSession: &stripe.CheckoutSessionEventData{
			ID:              "cs_1",
			PaymentIntentID: "pi_1",
			Metadata:        map[string]string{"order_id": "ord_1"},
		},
	})
	s.Require().NoError(err)
	return payload
}

// storeStuckEvent persists a webhook event row left in the given state at
// some point in the past.
func (s *ReprocessorSuite) storeStuckEvent(eventID string, status types.WebhookEventStatus, payload []byte, age time.Duration) {
	row := &webhookevent.WebhookEvent{
		ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixWebhookEvent),
		Provider:        types.PaymentProviderStripe,
		ProviderEventID: eventID,
		EventType:       types.WebhookEventCheckoutSessionCompleted,
		EventStatus:     status,
		Payload:         payload,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	row.CreatedAt = time.Now().UTC().Add(-age)
	s.Require().NoError(s.WebhookEventStore.Create(s.GetContext(), row))
}

func (s *ReprocessorSuite) TestRunOnceSettlesStuckEvent() {
	s.seedPendingOrder()
	// Crash between persisting the event and processing it: the row sits in
	// received state with a valid payload.
	s.storeStuckEvent("evt_1", types.WebhookEventStatusReceived, s.completionPayload("evt_1"), 10*time.Minute)

	s.NoError(s.reprocessor.RunOnce(s.GetContext()))

	o, err := s.OrderStore.Get(s.GetContext(), "ord_1")
	s.NoError(err)
	s.Equal(types.OrderStatusCompleted, o.OrderStatus)

	row, err := s.WebhookEventStore.GetByProviderEventID(s.GetContext(), types.PaymentProviderStripe, "evt_1")
	s.NoError(err)
	s.Equal(types.WebhookEventStatusProcessed, row.EventStatus)
}

func (s *ReprocessorSuite) TestRunOnceLeavesFreshEventsAlone() {
	s.seedPendingOrder()
	// Still inside the grace window; the live webhook path may be mid-flight.
	s.storeStuckEvent("evt_1", types.WebhookEventStatusReceived, s.completionPayload("evt_1"), 30*time.Second)

	s.NoError(s.reprocessor.RunOnce(s.GetContext()))

	o, err := s.OrderStore.Get(s.GetContext(), "ord_1")
	s.NoError(err)
	s.Equal(types.OrderStatusPending, o.OrderStatus)
}

func (s *ReprocessorSuite) TestRunOnceSkipsSettledEvents() {
	s.seedPendingOrder()
	s.storeStuckEvent("evt_1", types.WebhookEventStatusSkipped, s.completionPayload("evt_1"), 10*time.Minute)

	s.NoError(s.reprocessor.RunOnce(s.GetContext()))

	o, err := s.OrderStore.Get(s.GetContext(), "ord_1")
	s.NoError(err)
	s.Equal(types.OrderStatusPending, o.OrderStatus)
}

func (s *ReprocessorSuite) TestPermanentFailureDoesNotStopTheBatch() {
	s.seedPendingOrder()
	// Garbage payload fails deterministically; the healthy event behind it
	// still settles.
	s.storeStuckEvent("evt_bad", types.WebhookEventStatusFailed, []byte("not json"), 20*time.Minute)
	s.storeStuckEvent("evt_1", types.WebhookEventStatusReceived, s.completionPayload("evt_1"), 10*time.Minute)

	s.NoError(s.reprocessor.RunOnce(s.GetContext()))

	o, err := s.OrderStore.Get(s.GetContext(), "ord_1")
	s.NoError(err)
	s.Equal(types.OrderStatusCompleted, o.OrderStatus)
}
