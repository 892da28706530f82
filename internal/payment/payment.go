// Package payment bridges Stripe Checkout to the round engine: it
// opens one checkout session per member per calendar month and, on the
// processor's confirmation webhook, records the contribution into the
// group's current round.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
)

var (
	// ErrAlreadyPaid means this member's contribution for the month is
	// already settled.
	ErrAlreadyPaid = errors.New("contribution for this month is already paid")

	// ErrPaymentPending means an unfinished checkout session exists for
	// this month.
	ErrPaymentPending = errors.New("a checkout session for this month is already open")

	// ErrInvalidSignature means a webhook delivery failed verification.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Config holds the Stripe keys and redirect URLs.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// Service creates checkout sessions and consumes Stripe webhooks.
type Service struct {
	store  storage.Ledger
	engine *engine.Engine
	cfg    Config
}

// NewService configures the Stripe client and returns a Service.
func NewService(store storage.Ledger, eng *engine.Engine, cfg Config) *Service {
	stripe.Key = cfg.SecretKey
	return &Service{store: store, engine: eng, cfg: cfg}
}

// CreateCheckout opens a Stripe Checkout session for the user's
// contribution to the group this month and records a pending payment.
// Returns the session URL the client should redirect to.
func (s *Service) CreateCheckout(ctx context.Context, groupID, userID string) (string, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if _, err := s.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", engine.ErrNotAMember
		}
		return "", err
	}
	if group.CurrentRoundID == "" {
		return "", engine.ErrGroupInactive
	}

	now := time.Now()
	month, year := int(now.Month()), now.Year()
	if existing, err := s.store.GetPaymentForMonth(ctx, userID, groupID, month, year); err == nil {
		if existing.Status == models.PaymentPaid {
			return "", ErrAlreadyPaid
		}
		return "", ErrPaymentPending
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(string(stripe.CurrencyINR)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s — contribution %d/%d", group.Name, month, year)),
				},
				UnitAmount: stripe.Int64(int64(group.ContributionAmount * 100)),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
	}
	params.AddMetadata("group_id", groupID)
	params.AddMetadata("user_id", userID)

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	payment := &models.Payment{
		GroupID:         groupID,
		UserID:          userID,
		StripeSessionID: sess.ID,
		Amount:          group.ContributionAmount,
		Month:           month,
		Year:            year,
	}
	if err := s.store.InsertPayment(ctx, payment); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return "", ErrPaymentPending
		}
		return "", err
	}

	slog.Info("Checkout session created",
		"session_id", sess.ID, "group_id", groupID, "user_id", userID, "amount", group.ContributionAmount)
	return sess.URL, nil
}

// HandleWebhook verifies and consumes a Stripe webhook delivery. On
// checkout.session.completed it marks the payment paid and records the
// contribution into the group's current round. Deliveries are retried
// by Stripe, so every step tolerates being replayed.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.Type != "checkout.session.completed" {
		slog.Debug("Ignoring webhook event", "type", event.Type)
		return nil
	}

	sessionID := event.GetObjectValue("id")
	if sessionID == "" {
		return errors.New("webhook event has no session id")
	}

	payment, err := s.store.GetPaymentBySession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("unknown checkout session %s: %w", sessionID, err)
	}
	switch err := s.store.MarkPaymentPaid(ctx, payment.ID, time.Now().Unix()); {
	case err == nil:
		slog.Info("Payment settled", "payment_id", payment.ID, "session_id", sessionID)
	case errors.Is(err, storage.ErrConflict):
		// Replayed delivery; the payment already settled. The
		// contribution may not have landed on the earlier attempt,
		// so it is still tried below.
		slog.Debug("Payment already settled", "payment_id", payment.ID, "session_id", sessionID)
	default:
		return err
	}

	group, err := s.store.GetGroup(ctx, payment.GroupID)
	if err != nil {
		return err
	}
	if group.CurrentRoundID == "" {
		slog.Warn("Payment settled for a group with no open round",
			"payment_id", payment.ID, "group_id", payment.GroupID)
		return nil
	}
	if _, err := s.engine.RecordContribution(ctx, group.CurrentRoundID, payment.UserID, payment.Amount); err != nil {
		if errors.Is(err, engine.ErrDuplicateContribution) {
			return nil
		}
		return err
	}
	return nil
}
