package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
)

// GatewayProvider tags stored webhook events.
const GatewayProvider = "snap"

// Notification is the gateway's signed payment callback.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
}

type Outcome string

const (
	// OutcomeActivated: first successful delivery, entitlement extended.
	OutcomeActivated Outcome = "activated"
	// OutcomeDuplicate: the intent was already paid; acknowledged no-op.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored: a non-paid status, or a terminal non-paid intent.
	OutcomeIgnored Outcome = "ignored"
)

// NotificationResult is what an acknowledged delivery produced.
type NotificationResult struct {
	Outcome Outcome
	Payment *models.Payment
}

// HandleNotification verifies and applies one gateway delivery. Deliveries
// may be duplicated and arrive in any order; the pending -> paid
// compare-and-swap is the sole idempotency mechanism, so redelivering a
// settled payload is always a safe no-op.
func (s *Service) HandleNotification(ctx context.Context, raw []byte) (*NotificationResult, error) {
	_ = ctx
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(n.OrderID) == "" {
		return nil, fmt.Errorf("%w: missing order_id", ErrMalformedPayload)
	}

	signatureValid := VerifySignature(n, s.serverKey)
	event := s.recordEvent(raw, n, signatureValid)

	if !signatureValid {
		// Security event: never move money on an unauthenticated payload.
		log.Printf("billing: rejected notification with bad signature for order %s", n.OrderID)
		s.finishEvent(event, ErrInvalidSignature)
		return nil, ErrInvalidSignature
	}

	if !isPaidStatus(n.TransactionStatus) {
		// Acknowledge so the gateway stops redelivering; no state change.
		s.finishEvent(event, nil)
		return &NotificationResult{Outcome: OutcomeIgnored}, nil
	}

	payment, err := s.repo.GetPaymentByOrderID(n.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("billing: notification for unknown order %s", n.OrderID)
		s.finishEvent(event, ErrIntentNotFound)
		return nil, ErrIntentNotFound
	}
	if err != nil {
		s.finishEvent(event, err)
		return nil, fmt.Errorf("load intent: %w", err)
	}

	if payment.Status == models.PaymentStatusPaid {
		s.finishEvent(event, nil)
		return &NotificationResult{Outcome: OutcomeDuplicate, Payment: payment}, nil
	}
	if payment.Status != models.PaymentStatusPending {
		// Expired or failed intents are permanently ineligible for paid.
		log.Printf("billing: settlement for %s order %s ignored", payment.Status, n.OrderID)
		s.finishEvent(event, nil)
		return &NotificationResult{Outcome: OutcomeIgnored, Payment: payment}, nil
	}

	paidAt := s.now()
	won, err := s.repo.MarkPaymentPaid(payment.ID, paidAt)
	if err != nil {
		s.finishEvent(event, err)
		return nil, fmt.Errorf("mark paid: %w", err)
	}
	if !won {
		// A concurrent delivery or the expiry sweep got there first.
		fresh, err := s.repo.GetPaymentByOrderID(n.OrderID)
		if err != nil {
			s.finishEvent(event, err)
			return nil, fmt.Errorf("reload intent: %w", err)
		}
		s.finishEvent(event, nil)
		if fresh.Status == models.PaymentStatusPaid {
			return &NotificationResult{Outcome: OutcomeDuplicate, Payment: fresh}, nil
		}
		return &NotificationResult{Outcome: OutcomeIgnored, Payment: fresh}, nil
	}
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &paidAt

	if err := s.activate(payment, paidAt); err != nil {
		// The intent stays paid; the reconcile sweep retries just the
		// unpropagated side effects.
		s.finishEvent(event, err)
		return nil, err
	}

	s.finishEvent(event, nil)
	return &NotificationResult{Outcome: OutcomeActivated, Payment: payment}, nil
}

// activate applies the side effects of a paid intent: confirm the
// reservation, then extend the entitlement. Every step is idempotent so the
// sequence can be replayed after partial failure.
func (s *Service) activate(p *models.Payment, activatedAt time.Time) error {
	if p.PromotionID != nil {
		if err := s.repo.ConfirmRedemption(*p.PromotionID, p.UserID, activatedAt); err != nil {
			return fmt.Errorf("confirm redemption: %w", err)
		}
	}

	plan, err := s.repo.GetPlan(p.PlanID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPlanDataMissing
	}
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	// Entitlement resets from the activation instant; time left on a prior
	// period is discarded, renewals are not additive.
	until := activatedAt.AddDate(0, 0, plan.DurationDays)
	if err := s.repo.ExtendEntitlement(p.UserID, p.PlanID, until); err != nil {
		return fmt.Errorf("extend entitlement: %w", err)
	}

	if err := s.repo.MarkPaymentFinalized(p.ID, s.now()); err != nil {
		return fmt.Errorf("finalize intent: %w", err)
	}
	return nil
}

// recordEvent persists the raw delivery for audit and operational triage.
// It never gates processing; a persistence failure here is logged and
// swallowed so a broken audit trail cannot drop payments.
func (s *Service) recordEvent(raw []byte, n Notification, signatureValid bool) *models.WebhookEvent {
	sum := sha256.Sum256(raw)
	_, stored, err := s.repo.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Provider:        GatewayProvider,
		ProviderEventID: "hash:" + hex.EncodeToString(sum[:]),
		EventType:       strings.TrimSpace(n.TransactionStatus),
		PayloadJSON:     string(raw),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Printf("billing: persist webhook event failed: %v", err)
		return nil
	}
	return stored
}

func (s *Service) finishEvent(event *models.WebhookEvent, processingErr error) {
	if event == nil {
		return
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	if err := s.repo.MarkWebhookProcessed(event.ID, errMsg); err != nil {
		log.Printf("billing: mark webhook processed failed: %v", err)
	}
}

// isPaidStatus reports whether a transaction status counts as money
// received. Everything else is acknowledged without effect.
func isPaidStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "settlement", "capture":
		return true
	default:
		return false
	}
}
