package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"github.com/prasastio/kreasi/internal/pkg/gateway"
	"gorm.io/gorm"
)

// fakeRepo is an in-memory Repository with the same uniqueness and
// conditional-update semantics the MySQL schema enforces.
type fakeRepo struct {
	mu          sync.Mutex
	plans       map[uint]models.Plan
	promotions  map[uint]models.Promotion
	payments    map[uint]models.Payment
	redemptions map[string]models.PromotionRedemption
	users       map[uint]models.User
	events      map[string]models.WebhookEvent
	nextPayID   uint
	nextEvtID   uint

	failExtendEntitlement bool
	failDeleteRedemption  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		plans:       make(map[uint]models.Plan),
		promotions:  make(map[uint]models.Promotion),
		payments:    make(map[uint]models.Payment),
		redemptions: make(map[string]models.PromotionRedemption),
		users:       make(map[uint]models.User),
		events:      make(map[string]models.WebhookEvent),
	}
}

func redemptionKey(promotionID, userID uint) string {
	return fmt.Sprintf("%d:%d", promotionID, userID)
}

func (f *fakeRepo) GetPlan(id uint) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeRepo) GetActivePlan(id uint) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok || !p.IsActive {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeRepo) FindPromotionByCode(code string) (*models.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.promotions {
		if p.Code != nil && *p.Code == code {
			promo := p
			return &promo, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListAutomaticPromotions(now time.Time) ([]models.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Promotion
	for _, p := range f.promotions {
		if p.Code == nil && p.WindowContains(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DiscountPercent != out[j].DiscountPercent {
			return out[i].DiscountPercent > out[j].DiscountPercent
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRepo) CountSubscriptionsByUser(userID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.payments {
		if p.UserID == userID && p.Status == models.PaymentStatusPaid {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountRedemptions(promotionID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.redemptions {
		if r.PromotionID == promotionID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CreatePayment(p *models.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPayID++
	p.ID = f.nextPayID
	p.CreatedAt = time.Now()
	f.payments[p.ID] = *p
	return nil
}

func (f *fakeRepo) ReserveRedemption(r *models.PromotionRedemption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := redemptionKey(r.PromotionID, r.UserID)
	if _, exists := f.redemptions[key]; exists {
		return gorm.ErrDuplicatedKey
	}
	f.redemptions[key] = *r
	return nil
}

func (f *fakeRepo) UpdatePaymentGatewayRef(paymentID uint, token, redirectURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.GatewayToken = token
	p.RedirectURL = redirectURL
	f.payments[paymentID] = p
	return nil
}

func (f *fakeRepo) GetPaymentByID(id uint) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeRepo) GetPaymentByOrderID(orderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.OrderID == orderID {
			payment := p
			return &payment, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) MarkPaymentPaid(paymentID uint, paidAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusPaid
	p.PaidAt = &paidAt
	f.payments[paymentID] = p
	return true, nil
}

func (f *fakeRepo) MarkPaymentFinalized(paymentID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.FinalizedAt = &at
	f.payments[paymentID] = p
	return nil
}

func (f *fakeRepo) ClosePayment(paymentID uint, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	f.payments[paymentID] = p
	return true, nil
}

func (f *fakeRepo) ConfirmRedemption(promotionID, userID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := redemptionKey(promotionID, userID)
	r, ok := f.redemptions[key]
	if !ok {
		r = models.PromotionRedemption{PromotionID: promotionID, UserID: userID}
	}
	if r.ConfirmedAt == nil {
		r.ConfirmedAt = &at
	}
	f.redemptions[key] = r
	return nil
}

func (f *fakeRepo) DeleteUnconfirmedRedemption(promotionID, userID uint) error {
	if f.failDeleteRedemption {
		return errors.New("simulated reservation release failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := redemptionKey(promotionID, userID)
	if r, ok := f.redemptions[key]; ok && r.ConfirmedAt == nil {
		delete(f.redemptions, key)
	}
	return nil
}

func (f *fakeRepo) ExtendEntitlement(userID, planID uint, until time.Time) error {
	if f.failExtendEntitlement {
		return errors.New("simulated entitlement write failure")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	pid := planID
	u.PlanID = &pid
	u.ActiveUntil = &until
	f.users[userID] = u
	return nil
}

func (f *fakeRepo) ListStalePendingPayments(before time.Time, limit int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status == models.PaymentStatusPending && p.CreatedAt.Before(before) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) ListPaidUnfinalizedPayments(limit int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.payments {
		if p.Status == models.PaymentStatusPaid && p.FinalizedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := event.Provider + "/" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		return false, &stored, nil
	}
	f.nextEvtID++
	event.ID = f.nextEvtID
	f.events[key] = *event
	stored := *event
	return true, &stored, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for key, e := range f.events {
		if e.ID == id {
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			f.events[key] = e
		}
	}
	return nil
}

// Transaction tracks rows touched by fn and undoes those changes when fn
// fails, mimicking a DB rollback without clobbering concurrent commits.
func (f *fakeRepo) Transaction(fn func(Repository) error) error {
	tx := &fakeTx{fakeRepo: f}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type fakeTx struct {
	*fakeRepo
	createdPayments    []uint
	createdRedemptions []string
	closedPayments     map[uint]string
	deletedRedemptions map[string]models.PromotionRedemption
}

func (t *fakeTx) CreatePayment(p *models.Payment) error {
	if err := t.fakeRepo.CreatePayment(p); err != nil {
		return err
	}
	t.createdPayments = append(t.createdPayments, p.ID)
	return nil
}

func (t *fakeTx) ReserveRedemption(r *models.PromotionRedemption) error {
	if err := t.fakeRepo.ReserveRedemption(r); err != nil {
		return err
	}
	t.createdRedemptions = append(t.createdRedemptions, redemptionKey(r.PromotionID, r.UserID))
	return nil
}

func (t *fakeTx) ClosePayment(paymentID uint, status string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.payments[paymentID]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	if t.closedPayments == nil {
		t.closedPayments = make(map[uint]string)
	}
	t.closedPayments[paymentID] = p.Status
	p.Status = status
	t.payments[paymentID] = p
	return true, nil
}

func (t *fakeTx) DeleteUnconfirmedRedemption(promotionID, userID uint) error {
	if t.failDeleteRedemption {
		return errors.New("simulated reservation release failure")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	key := redemptionKey(promotionID, userID)
	if r, ok := t.redemptions[key]; ok && r.ConfirmedAt == nil {
		if t.deletedRedemptions == nil {
			t.deletedRedemptions = make(map[string]models.PromotionRedemption)
		}
		t.deletedRedemptions[key] = r
		delete(t.redemptions, key)
	}
	return nil
}

func (t *fakeTx) rollback() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.createdPayments {
		delete(t.payments, id)
	}
	for _, key := range t.createdRedemptions {
		delete(t.redemptions, key)
	}
	for id, status := range t.closedPayments {
		if p, ok := t.payments[id]; ok {
			p.Status = status
			t.payments[id] = p
		}
	}
	for key, r := range t.deletedRedemptions {
		t.redemptions[key] = r
	}
}

// fakeGateway hands out deterministic tokens, or fails on demand.
type fakeGateway struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, orderID string, grossAmount int64) (*gateway.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return nil, gateway.ErrTokenRequestFailed
	}
	return &gateway.Transaction{
		Token:       "tok-" + orderID,
		RedirectURL: "https://pay.example/" + orderID,
	}, nil
}
