package models

import (
	"errors"
	"time"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusExpired = "expired"
	PaymentStatusFailed  = "failed"
)

// ErrInvalidTransition is returned when a payment status change would leave
// a terminal state.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// Payment is a single checkout intent with its price quote frozen at
// creation time. Later promotion edits never touch an existing row.
// FinalizedAt marks that the paid payment has been propagated into the
// user's entitlement; paid rows without it are picked up by the
// reconciliation sweep.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	PlanID          uint       `gorm:"not null;index" json:"plan_id"`
	PromotionID     *uint      `gorm:"index" json:"promotion_id,omitempty"`
	OrderID         string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`
	BasePrice       int64      `gorm:"not null" json:"base_price"`
	DiscountPercent int        `gorm:"not null;default:0" json:"discount_percent"`
	FinalPrice      int64      `gorm:"not null" json:"final_price"`
	GatewayToken    string     `gorm:"type:varchar(191)" json:"gateway_token"`
	RedirectURL     string     `gorm:"type:varchar(255)" json:"redirect_url"`
	Status          string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	FinalizedAt     *time.Time `gorm:"type:timestamp;default:null" json:"finalized_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the payment can no longer change status.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusExpired || p.Status == PaymentStatusFailed
}

// CanTransitionTo reports whether the status change is authorized. The only
// legal transitions are pending -> paid/expired/failed; nothing leaves paid
// or any other terminal state.
func (p *Payment) CanTransitionTo(status string) bool {
	if p.Status != PaymentStatusPending {
		return false
	}
	switch status {
	case PaymentStatusPaid, PaymentStatusExpired, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// TransitionTo applies an authorized status change in memory. Persisting the
// change race-safely is the repository's job (conditional update on the
// pending status).
func (p *Payment) TransitionTo(status string) error {
	if !p.CanTransitionTo(status) {
		return ErrInvalidTransition
	}
	p.Status = status
	return nil
}
