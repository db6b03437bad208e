package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
)

// CreateIntent creates a priced, reserved checkout attempt. The price quote
// is frozen on the intent row; promotion edits after this point never change
// what the user pays. Either the intent, its reservation and its gateway
// token all exist afterwards, or none of them do.
func (s *Service) CreateIntent(ctx context.Context, userID, planID uint, couponCode string) (*models.Payment, error) {
	now := s.now()

	plan, err := s.repo.GetActivePlan(planID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}

	quote, err := s.ResolvePromotion(planID, userID, couponCode, now)
	if err != nil {
		return nil, err
	}

	discount := 0
	var promotionID *uint
	if quote != nil {
		discount = quote.DiscountPercent
		id := quote.PromotionID
		promotionID = &id
	}

	payment := &models.Payment{
		UserID:          userID,
		PlanID:          planID,
		PromotionID:     promotionID,
		OrderID:         newOrderID(),
		BasePrice:       plan.Price,
		DiscountPercent: discount,
		FinalPrice:      FinalPrice(plan.Price, discount),
		Status:          models.PaymentStatusPending,
	}

	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreatePayment(payment); err != nil {
			return fmt.Errorf("persist intent: %w", err)
		}
		if promotionID != nil {
			reservation := &models.PromotionRedemption{
				PromotionID: *promotionID,
				UserID:      userID,
			}
			if err := tx.ReserveRedemption(reservation); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return ErrPromotionAlreadyUsed
				}
				return fmt.Errorf("reserve redemption: %w", err)
			}
		}
		// The gateway call runs inside the transaction on purpose: if token
		// issuance fails, the rollback removes the intent and the
		// reservation in one stroke.
		gwTx, err := s.gw.CreateTransaction(ctx, payment.OrderID, payment.FinalPrice)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		payment.GatewayToken = gwTx.Token
		payment.RedirectURL = gwTx.RedirectURL
		return tx.UpdatePaymentGatewayRef(payment.ID, gwTx.Token, gwTx.RedirectURL)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// CancelIntent lets the owning user abandon a pending checkout. The intent
// moves to failed and an unconfirmed reservation is released so the
// promotion becomes redeemable again.
func (s *Service) CancelIntent(ctx context.Context, userID, paymentID uint) (*models.Payment, error) {
	_ = ctx
	payment, err := s.repo.GetPaymentByID(paymentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load intent: %w", err)
	}
	if payment.UserID != userID {
		// Do not leak other users' intents.
		return nil, ErrIntentNotFound
	}

	// Close and release in one transaction: a failed release must roll the
	// close back, or the intent ends terminal with the reservation stranded
	// and no retry able to reach it.
	err = s.repo.Transaction(func(tx Repository) error {
		ok, err := tx.ClosePayment(payment.ID, models.PaymentStatusFailed)
		if err != nil {
			return fmt.Errorf("cancel intent: %w", err)
		}
		if !ok {
			return models.ErrInvalidTransition
		}
		if payment.PromotionID != nil {
			if err := tx.DeleteUnconfirmedRedemption(*payment.PromotionID, payment.UserID); err != nil {
				return fmt.Errorf("release reservation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	payment.Status = models.PaymentStatusFailed
	return payment, nil
}

func newOrderID() string {
	return "KRS-" + uuid.NewString()
}
