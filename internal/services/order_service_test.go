// internal/services/order_service_test.go
package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/gemstore-backend/internal/models"
)

func activeGemstone(name, price string, stock int) models.Gemstone {
	g := models.Gemstone{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Status:        models.GemstoneStatusActive,
	}
	g.ID = uuid.New()
	return g
}

func TestBuildOrderItems(t *testing.T) {
	ruby := activeGemstone("Burmese Ruby", "1200.00", 2)
	opal := activeGemstone("Fire Opal", "89.95", 10)
	stones := map[uuid.UUID]models.Gemstone{ruby.ID: ruby, opal.ID: opal}

	cart := []models.CartItem{
		{GemstoneID: ruby.ID, Quantity: 2},
		{GemstoneID: opal.ID, Quantity: 3},
	}

	items, subtotal, err := buildOrderItems(cart, stones)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Burmese Ruby", items[0].GemstoneName)
	assert.Equal(t, "2400.00", items[0].LineTotal.StringFixed(2))
	assert.Equal(t, "269.85", items[1].LineTotal.StringFixed(2))
	assert.Equal(t, "2669.85", subtotal.StringFixed(2))
}

func TestBuildOrderItemsRejectsShortStock(t *testing.T) {
	ruby := activeGemstone("Burmese Ruby", "1200.00", 1)
	_, _, err := buildOrderItems(
		[]models.CartItem{{GemstoneID: ruby.ID, Quantity: 2}},
		map[uuid.UUID]models.Gemstone{ruby.ID: ruby},
	)
	assert.True(t, errors.Is(err, ErrInsufficientStock))
}

func TestBuildOrderItemsRejectsHiddenOrMissing(t *testing.T) {
	draft := activeGemstone("Draft Emerald", "500.00", 5)
	draft.Status = models.GemstoneStatusDraft

	_, _, err := buildOrderItems(
		[]models.CartItem{{GemstoneID: draft.ID, Quantity: 1}},
		map[uuid.UUID]models.Gemstone{draft.ID: draft},
	)
	assert.True(t, errors.Is(err, ErrGemstoneUnavailable))

	_, _, err = buildOrderItems([]models.CartItem{{GemstoneID: uuid.New(), Quantity: 1}}, nil)
	assert.True(t, errors.Is(err, ErrGemstoneUnavailable))
}

func TestCheckCancellable(t *testing.T) {
	tests := []struct {
		status  models.OrderStatus
		byAdmin bool
		want    error
	}{
		{models.OrderStatusPending, false, nil},
		{models.OrderStatusConfirmed, false, ErrOrderNotCancellable},
		{models.OrderStatusConfirmed, true, nil},
		{models.OrderStatusProcessing, true, nil},
		{models.OrderStatusShipped, true, ErrOrderNotCancellable},
		{models.OrderStatusDelivered, true, ErrOrderNotCancellable},
		{models.OrderStatusCancelled, true, ErrOrderAlreadyCancelled},
		{models.OrderStatusCancelled, false, ErrOrderAlreadyCancelled},
	}

	for _, tt := range tests {
		err := CheckCancellable(tt.status, tt.byAdmin)
		if tt.want == nil {
			assert.NoError(t, err, "%s admin=%v", tt.status, tt.byAdmin)
		} else {
			assert.ErrorIs(t, err, tt.want, "%s admin=%v", tt.status, tt.byAdmin)
		}
	}
}

type fakeGateway struct {
	intent   *PaymentIntent
	created  []*PaymentIntent
	refunded []int64
}

func (g *fakeGateway) CreateIntent(amountMinor int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	intent := &PaymentIntent{
		ID:       "pi_test",
		Amount:   amountMinor,
		Currency: strings.ToLower(currency),
		Status:   "requires_payment_method",
		Metadata: metadata,
	}
	g.created = append(g.created, intent)
	return intent, nil
}

func (g *fakeGateway) GetIntent(id string) (*PaymentIntent, error) {
	if g.intent == nil {
		return nil, errors.New("no such intent")
	}
	return g.intent, nil
}

func (g *fakeGateway) Refund(_ string, amountMinor int64, _ string) error {
	g.refunded = append(g.refunded, amountMinor)
	return nil
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(123456), MinorUnits(decimal.RequireFromString("1234.56"), "USD"))
	assert.Equal(t, int64(1235), MinorUnits(decimal.RequireFromString("1234.5"), "jpy"))
	assert.Equal(t, int64(1), MinorUnits(decimal.RequireFromString("0.005"), "EUR"))
}

func TestPaymentServiceDisabled(t *testing.T) {
	svc := NewPaymentServiceWithGateway(nil)
	assert.False(t, svc.Enabled())

	_, err := svc.CreateOrderPayment(&models.Order{})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestPaymentServiceFlow(t *testing.T) {
	gateway := &fakeGateway{}
	svc := NewPaymentServiceWithGateway(gateway)
	order := &models.Order{DisplayTotal: decimal.RequireFromString("250.10"), Currency: "EUR"}
	order.ID = uuid.New()

	intent, err := svc.CreateOrderPayment(order)
	require.NoError(t, err)
	assert.Equal(t, int64(25010), intent.Amount)
	assert.Equal(t, order.ID.String(), intent.Metadata["order_id"])

	order.PaymentIntentID = intent.ID
	_, err = svc.ConfirmOrderPayment(order, "pi_other")
	assert.ErrorIs(t, err, ErrPaymentMismatch)

	gateway.intent = &PaymentIntent{ID: "pi_test", Status: "processing", Amount: 25010, Currency: "eur", Metadata: intent.Metadata}
	status, err := svc.ConfirmOrderPayment(order, "pi_test")
	assert.ErrorIs(t, err, ErrPaymentIncomplete)
	assert.Equal(t, models.PaymentStatusUnpaid, status)

	gateway.intent.Status = "succeeded"
	status, err = svc.ConfirmOrderPayment(order, "pi_test")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, status)

	require.NoError(t, svc.RefundOrder(order))
	assert.Equal(t, []int64{25010}, gateway.refunded)
}

func TestConfirmOrderPaymentRejectsForeignIntents(t *testing.T) {
	order := &models.Order{DisplayTotal: decimal.RequireFromString("5000.00"), Currency: "EUR"}
	order.ID = uuid.New()
	ownMetadata := map[string]string{"order_id": order.ID.String()}

	tests := []struct {
		name     string
		storedID string
		intent   PaymentIntent
		want     error
	}{
		{
			name:   "no intent stored on the order",
			intent: PaymentIntent{ID: "pi_someone_else", Status: "succeeded", Amount: 100, Currency: "usd"},
			want:   ErrPaymentNotStarted,
		},
		{
			name:     "intent created for another order",
			storedID: "pi_test",
			intent:   PaymentIntent{ID: "pi_test", Status: "succeeded", Amount: 500000, Currency: "eur", Metadata: map[string]string{"order_id": uuid.NewString()}},
			want:     ErrPaymentMismatch,
		},
		{
			name:     "amount below the order total",
			storedID: "pi_test",
			intent:   PaymentIntent{ID: "pi_test", Status: "succeeded", Amount: 100, Currency: "eur", Metadata: ownMetadata},
			want:     ErrPaymentAmount,
		},
		{
			name:     "charged in another currency",
			storedID: "pi_test",
			intent:   PaymentIntent{ID: "pi_test", Status: "succeeded", Amount: 500000, Currency: "usd", Metadata: ownMetadata},
			want:     ErrPaymentAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := tt.intent
			svc := NewPaymentServiceWithGateway(&fakeGateway{intent: &intent})
			o := *order
			o.PaymentIntentID = tt.storedID

			status, err := svc.ConfirmOrderPayment(&o, tt.intent.ID)
			assert.ErrorIs(t, err, tt.want)
			assert.NotEqual(t, models.PaymentStatusPaid, status)
		})
	}
}
