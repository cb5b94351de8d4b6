// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/javajoker/gemstore-backend/internal/config"
	"github.com/javajoker/gemstore-backend/internal/models"
)

var (
	ErrPaymentsDisabled  = errors.New("payments are not configured")
	ErrPaymentMismatch   = errors.New("payment intent does not belong to this order")
	ErrPaymentIncomplete = errors.New("payment has not completed")
	ErrPaymentNotStarted = errors.New("no payment has been started for this order")
	ErrPaymentAmount     = errors.New("payment amount or currency does not match the order")
	ErrPaymentNotNeeded  = errors.New("order does not accept a new payment")
)

// PaymentIntent is the subset of a Stripe PaymentIntent the store relies on.
type PaymentIntent struct {
	ID           string `json:"payment_intent_id"`
	ClientSecret string `json:"client_secret,omitempty"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`

	Metadata map[string]string `json:"-"`
}

// PaymentGateway is the card processor behind checkout and refunds.
type PaymentGateway interface {
	CreateIntent(amountMinor int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(id string) (*PaymentIntent, error)
	Refund(intentID string, amountMinor int64, reason string) error
}

type StripeGateway struct{}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{}
}

func (g *StripeGateway) CreateIntent(amountMinor int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) GetIntent(id string) (*PaymentIntent, error) {
	pi, err := paymentintent.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func (g *StripeGateway) Refund(intentID string, amountMinor int64, reason string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amountMinor),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if reason != "" {
		params.AddMetadata("cancel_reason", reason)
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}
	return nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

type PaymentService struct {
	gateway PaymentGateway
}

// NewPaymentService returns a service backed by Stripe when a secret key is
// configured, otherwise a disabled one.
func NewPaymentService(cfg config.PaymentConfig) *PaymentService {
	if cfg.StripeSecretKey == "" {
		logrus.Warn("Stripe secret key not configured, orders will be created without payment intents")
		return &PaymentService{}
	}
	return &PaymentService{gateway: NewStripeGateway(cfg.StripeSecretKey)}
}

func NewPaymentServiceWithGateway(gateway PaymentGateway) *PaymentService {
	return &PaymentService{gateway: gateway}
}

func (s *PaymentService) Enabled() bool {
	return s != nil && s.gateway != nil
}

// CreateOrderPayment charges the order's display total in its display currency.
func (s *PaymentService) CreateOrderPayment(order *models.Order) (*PaymentIntent, error) {
	if !s.Enabled() {
		return nil, ErrPaymentsDisabled
	}

	return s.gateway.CreateIntent(MinorUnits(order.DisplayTotal, order.Currency), order.Currency, map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      order.UserID.String(),
	})
}

// GetOrderPayment fetches the intent stored on the order.
func (s *PaymentService) GetOrderPayment(order *models.Order) (*PaymentIntent, error) {
	if !s.Enabled() {
		return nil, ErrPaymentsDisabled
	}
	if order.PaymentIntentID == "" {
		return nil, ErrPaymentNotStarted
	}
	return s.gateway.GetIntent(order.PaymentIntentID)
}

// ConfirmOrderPayment maps the intent status to the order's payment status.
// Only the intent stored on the order is accepted, and it must carry the
// order's id and charge exactly the order's display total.
func (s *PaymentService) ConfirmOrderPayment(order *models.Order, intentID string) (models.PaymentStatus, error) {
	if !s.Enabled() {
		return "", ErrPaymentsDisabled
	}
	if order.PaymentIntentID == "" {
		return "", ErrPaymentNotStarted
	}
	if intentID != order.PaymentIntentID {
		return "", ErrPaymentMismatch
	}

	pi, err := s.gateway.GetIntent(intentID)
	if err != nil {
		return "", err
	}
	if err := verifyIntent(order, pi); err != nil {
		return "", err
	}

	switch stripe.PaymentIntentStatus(pi.Status) {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentStatusPaid, nil
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentStatusFailed, nil
	default:
		return models.PaymentStatusUnpaid, ErrPaymentIncomplete
	}
}

func verifyIntent(order *models.Order, pi *PaymentIntent) error {
	if pi.ID != order.PaymentIntentID || pi.Metadata["order_id"] != order.ID.String() {
		return ErrPaymentMismatch
	}
	if pi.Amount != MinorUnits(order.DisplayTotal, order.Currency) || !strings.EqualFold(pi.Currency, order.Currency) {
		return fmt.Errorf("%w: intent charges %d %s", ErrPaymentAmount, pi.Amount, strings.ToUpper(pi.Currency))
	}
	return nil
}

func (s *PaymentService) RefundOrder(order *models.Order) error {
	if !s.Enabled() {
		return ErrPaymentsDisabled
	}
	if order.PaymentIntentID == "" {
		return errors.New("order has no payment to refund")
	}
	return s.gateway.Refund(order.PaymentIntentID, MinorUnits(order.DisplayTotal, order.Currency), order.CancelReason)
}

// MinorUnits converts an amount to the processor's smallest currency unit.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Mul(hundred).Round(0).IntPart()
}
