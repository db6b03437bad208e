package billing

import (
	"context"
	"log"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"github.com/prasastio/kreasi/internal/pkg/gateway"
	"gorm.io/gorm"
)

// Service owns checkout intent creation, promotion resolution and payment
// notification processing.
type Service struct {
	repo      Repository
	gw        gateway.Client
	serverKey string
	now       func() time.Time
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, gw gateway.Client, serverKey string) *Service {
	return &Service{repo: repo, gw: gw, serverKey: serverKey, now: time.Now}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gw gateway.Client, serverKey string) *Service {
	return NewService(NewRepository(db), gw, serverKey)
}

// ExpireStaleIntents closes pending intents older than olderThan and
// releases their unconfirmed reservations. Returns how many were expired.
func (s *Service) ExpireStaleIntents(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	_ = ctx
	cutoff := s.now().Add(-olderThan)
	stale, err := s.repo.ListStalePendingPayments(cutoff, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		p := &stale[i]
		closed := false
		err := s.repo.Transaction(func(tx Repository) error {
			ok, err := tx.ClosePayment(p.ID, models.PaymentStatusExpired)
			if err != nil {
				return err
			}
			if !ok {
				// Lost the race against a webhook delivery; leave it alone.
				return nil
			}
			if p.PromotionID != nil {
				// Same transaction as the close: a failed release rolls the
				// row back to pending so the next sweep picks it up again.
				if err := tx.DeleteUnconfirmedRedemption(*p.PromotionID, p.UserID); err != nil {
					return err
				}
			}
			closed = true
			return nil
		})
		if err != nil {
			log.Printf("billing: expire intent %d failed: %v", p.ID, err)
			continue
		}
		if closed {
			expired++
		}
	}
	return expired, nil
}

// ReconcilePaidIntents re-applies the activation side effects for payments
// that were marked paid but whose entitlement write never landed. Safe to
// run repeatedly; every step is idempotent.
func (s *Service) ReconcilePaidIntents(ctx context.Context, limit int) (int, error) {
	_ = ctx
	payments, err := s.repo.ListPaidUnfinalizedPayments(limit)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for i := range payments {
		p := &payments[i]
		at := s.now()
		if p.PaidAt != nil {
			at = *p.PaidAt
		}
		if err := s.activate(p, at); err != nil {
			log.Printf("billing: reconcile intent %d failed: %v", p.ID, err)
			continue
		}
		repaired++
	}
	return repaired, nil
}
