package billing

import (
	"time"

	"github.com/prasastio/kreasi/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetPlan(id uint) (*models.Plan, error)
	GetActivePlan(id uint) (*models.Plan, error)
	FindPromotionByCode(code string) (*models.Promotion, error)
	ListAutomaticPromotions(now time.Time) ([]models.Promotion, error)
	CountSubscriptionsByUser(userID uint) (int64, error)
	CountRedemptions(promotionID uint) (int64, error)
	CreatePayment(p *models.Payment) error
	ReserveRedemption(r *models.PromotionRedemption) error
	UpdatePaymentGatewayRef(paymentID uint, token, redirectURL string) error
	GetPaymentByID(id uint) (*models.Payment, error)
	GetPaymentByOrderID(orderID string) (*models.Payment, error)
	MarkPaymentPaid(paymentID uint, paidAt time.Time) (bool, error)
	MarkPaymentFinalized(paymentID uint, at time.Time) error
	ClosePayment(paymentID uint, status string) (bool, error)
	ConfirmRedemption(promotionID, userID uint, at time.Time) error
	DeleteUnconfirmedRedemption(promotionID, userID uint) error
	ExtendEntitlement(userID, planID uint, until time.Time) error
	ListStalePendingPayments(before time.Time, limit int) ([]models.Payment, error)
	ListPaidUnfinalizedPayments(limit int) ([]models.Payment, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	Transaction(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetPlan(id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.First(&plan, id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) GetActivePlan(id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *gormRepository) FindPromotionByCode(code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.Preload("Plans").Where("code = ?", code).First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// ListAutomaticPromotions returns code-less promotions whose window contains
// now, best discount first. Ties resolve to the lowest id; overlapping
// automatic promotions are not expected in practice.
func (r *gormRepository) ListAutomaticPromotions(now time.Time) ([]models.Promotion, error) {
	var promos []models.Promotion
	err := r.db.Preload("Plans").
		Where("code IS NULL AND starts_at <= ? AND ends_at > ?", now, now).
		Order("discount_percent DESC, id ASC").
		Find(&promos).Error
	return promos, err
}

// CountSubscriptionsByUser counts payments that ever reached paid, i.e. the
// user's prior subscription purchases regardless of whether they are still
// active.
func (r *gormRepository) CountSubscriptionsByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentStatusPaid).
		Count(&count).Error
	return count, err
}

// CountRedemptions counts reserved and confirmed rows alike; both hold a
// slot against the promotion quota.
func (r *gormRepository) CountRedemptions(promotionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PromotionRedemption{}).
		Where("promotion_id = ?", promotionID).
		Count(&count).Error
	return count, err
}

func (r *gormRepository) CreatePayment(p *models.Payment) error {
	return r.db.Create(p).Error
}

// ReserveRedemption inserts the reservation row. A concurrent reservation
// for the same (promotion, user) pair fails the unique index and surfaces
// as gorm.ErrDuplicatedKey.
func (r *gormRepository) ReserveRedemption(red *models.PromotionRedemption) error {
	return r.db.Create(red).Error
}

func (r *gormRepository) UpdatePaymentGatewayRef(paymentID uint, token, redirectURL string) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(map[string]interface{}{
		"gateway_token": token,
		"redirect_url":  redirectURL,
	}).Error
}

func (r *gormRepository) GetPaymentByID(id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkPaymentPaid performs the pending -> paid swap as a conditional update.
// Two concurrent deliveries cannot both win: the WHERE clause only matches
// the pending row once.
func (r *gormRepository) MarkPaymentPaid(paymentID uint, paidAt time.Time) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":  models.PaymentStatusPaid,
			"paid_at": &paidAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) MarkPaymentFinalized(paymentID uint, at time.Time) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).
		Update("finalized_at", &at).Error
}

// ClosePayment moves a pending payment to a terminal non-paid status. Same
// conditional-update discipline as MarkPaymentPaid.
func (r *gormRepository) ClosePayment(paymentID uint, status string) (bool, error) {
	tx := r.db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusPending).
		Update("status", status)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ConfirmRedemption stamps the reservation as consumed. Insert-if-absent so
// the repair path can recreate a row that was lost between reservation and
// confirmation; a duplicate insert is not an error.
func (r *gormRepository) ConfirmRedemption(promotionID, userID uint, at time.Time) error {
	red := &models.PromotionRedemption{
		PromotionID: promotionID,
		UserID:      userID,
		ConfirmedAt: &at,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "promotion_id"},
			{Name: "user_id"},
		},
		DoNothing: true,
	}).Create(red).Error; err != nil {
		return err
	}

	return r.db.Model(&models.PromotionRedemption{}).
		Where("promotion_id = ? AND user_id = ? AND confirmed_at IS NULL", promotionID, userID).
		Update("confirmed_at", &at).Error
}

// DeleteUnconfirmedRedemption releases a reservation whose checkout died
// before payment. Confirmed rows are never deleted.
func (r *gormRepository) DeleteUnconfirmedRedemption(promotionID, userID uint) error {
	return r.db.
		Where("promotion_id = ? AND user_id = ? AND confirmed_at IS NULL", promotionID, userID).
		Delete(&models.PromotionRedemption{}).Error
}

func (r *gormRepository) ExtendEntitlement(userID, planID uint, until time.Time) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"plan_id":      planID,
		"active_until": &until,
	}).Error
}

func (r *gormRepository) ListStalePendingPayments(before time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("status = ? AND created_at < ?", models.PaymentStatusPending, before).
		Order("id ASC").Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) ListPaidUnfinalizedPayments(limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Where("status = ? AND finalized_at IS NULL", models.PaymentStatusPaid).
		Order("id ASC").Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// Transaction runs fn against a repository bound to a DB transaction. Any
// returned error rolls everything back.
func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
