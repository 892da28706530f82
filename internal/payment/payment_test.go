package payment

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/events"
	"github.com/marup-app/marup-server/internal/models"
	"github.com/marup-app/marup-server/internal/storage"
	"github.com/marup-app/marup-server/internal/storage/sqlite"
)

const testWebhookSecret = "whsec_test"

func newTestService(t *testing.T) (*Service, storage.Ledger) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, events.Nop{})
	return NewService(store, eng, Config{WebhookSecret: testWebhookSecret}), store
}

func createPaidUpGroup(t *testing.T, svc *Service, store storage.Ledger) (*models.Group, *models.Payment) {
	t.Helper()
	ctx := context.Background()
	group := &models.Group{
		Name:               "Office Marup",
		ContributionAmount: 1000,
		MaxMembers:         3,
		DurationMonths:     3,
		OwnerID:            "owner-1",
	}
	if err := svc.engine.CreateGroup(ctx, group); err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}

	now := time.Now()
	payment := &models.Payment{
		GroupID:         group.ID,
		UserID:          "owner-1",
		StripeSessionID: "cs_test_1",
		Amount:          group.ContributionAmount,
		Month:           int(now.Month()),
		Year:            now.Year(),
	}
	if err := store.InsertPayment(ctx, payment); err != nil {
		t.Fatalf("Failed to insert payment: %v", err)
	}
	return group, payment
}

// signedEvent builds a checkout.session.completed delivery with a valid
// Stripe-Signature header for testWebhookSecret.
func signedEvent(t *testing.T, sessionID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","api_version":%q,"type":"checkout.session.completed","data":{"object":{"id":%q}}}`,
		stripe.APIVersion, sessionID))
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	return payload, fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func countContributions(t *testing.T, store storage.Ledger, groupID string) int {
	t.Helper()
	ctx := context.Background()
	round, err := store.GetCurrentRound(ctx, groupID)
	if err != nil {
		t.Fatalf("Expected an open round: %v", err)
	}
	contributions, err := store.ListContributions(ctx, round.ID)
	if err != nil {
		t.Fatalf("Failed to list contributions: %v", err)
	}
	return len(contributions)
}

func TestHandleWebhookSettlesPayment(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	group, pmt := createPaidUpGroup(t, svc, store)

	payload, signature := signedEvent(t, pmt.StripeSessionID)
	if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
		t.Fatalf("Failed to handle webhook: %v", err)
	}

	settled, err := store.GetPaymentBySession(ctx, pmt.StripeSessionID)
	if err != nil {
		t.Fatalf("Failed to reload payment: %v", err)
	}
	if settled.Status != models.PaymentPaid {
		t.Errorf("Expected payment status %q, got %q", models.PaymentPaid, settled.Status)
	}
	if got := countContributions(t, store, group.ID); got != 1 {
		t.Errorf("Expected 1 contribution, got %d", got)
	}

	// Replayed delivery changes nothing.
	if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
		t.Fatalf("Failed to handle replayed webhook: %v", err)
	}
	if got := countContributions(t, store, group.ID); got != 1 {
		t.Errorf("Expected 1 contribution after replay, got %d", got)
	}
}

func TestHandleWebhookRecoversMissedContribution(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	group, pmt := createPaidUpGroup(t, svc, store)

	// A payment settled by an earlier delivery whose contribution never
	// landed. The retried delivery must record it.
	if err := store.MarkPaymentPaid(ctx, pmt.ID, time.Now().Unix()); err != nil {
		t.Fatalf("Failed to mark payment paid: %v", err)
	}

	payload, signature := signedEvent(t, pmt.StripeSessionID)
	if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
		t.Fatalf("Failed to handle retried webhook: %v", err)
	}
	if got := countContributions(t, store, group.ID); got != 1 {
		t.Errorf("Expected 1 contribution after retry, got %d", got)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	payload, _ := signedEvent(t, "cs_test_1")
	err := svc.HandleWebhook(ctx, payload, "t=1,v1=deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Expected ErrInvalidSignature, got %v", err)
	}
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	group, _ := createPaidUpGroup(t, svc, store)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_2","api_version":%q,"type":"invoice.paid","data":{"object":{"id":"in_1"}}}`,
		stripe.APIVersion))
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, testWebhookSecret)
	signature := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))

	if err := svc.HandleWebhook(ctx, payload, signature); err != nil {
		t.Fatalf("Failed to handle webhook: %v", err)
	}
	if got := countContributions(t, store, group.ID); got != 0 {
		t.Errorf("Expected no contributions, got %d", got)
	}
}
