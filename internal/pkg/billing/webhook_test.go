package billing

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "server-key"

// signedNotification builds the JSON body the gateway would deliver for the
// given order, with a valid signature over the signed fields.
func signedNotification(t *testing.T, orderID, status, grossAmount string) []byte {
	t.Helper()
	n := Notification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       grossAmount,
		TransactionStatus: status,
	}
	n.SignatureKey = ComputeSignature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	return raw
}

func seedWebhookRepo() *fakeRepo {
	repo := newFakeRepo()
	repo.plans[1] = models.Plan{ID: 1, Name: "Premium", Price: 100000, DurationDays: 30, IsActive: true}
	repo.users[1] = models.User{ID: 1}
	repo.payments[10] = models.Payment{
		ID:         10,
		UserID:     1,
		PlanID:     1,
		OrderID:    "KRS-abc",
		BasePrice:  100000,
		FinalPrice: 100000,
		Status:     models.PaymentStatusPending,
		CreatedAt:  testNow.Add(-time.Minute),
	}
	repo.nextPayID = 10
	return repo
}

func TestHandleNotificationActivates(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})

	res, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", "settlement", "100000.00"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, res.Outcome)

	p := repo.payments[10]
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	require.NotNil(t, p.PaidAt)
	require.NotNil(t, p.FinalizedAt)

	u := repo.users[1]
	require.NotNil(t, u.ActiveUntil)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *u.ActiveUntil)
	require.NotNil(t, u.PlanID)
	assert.Equal(t, uint(1), *u.PlanID)
}

func TestHandleNotificationDoubleDeliveryActivatesOnce(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})
	raw := signedNotification(t, "KRS-abc", "settlement", "100000.00")

	res, err := svc.HandleNotification(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, res.Outcome)

	firstUntil := *repo.users[1].ActiveUntil

	// Same payload again: acknowledged, zero additional effect.
	res, err = svc.HandleNotification(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Equal(t, firstUntil, *repo.users[1].ActiveUntil)
}

func TestHandleNotificationBadSignature(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})

	raw := signedNotification(t, "KRS-abc", "settlement", "100000.00")
	// Tamper with the amount after signing.
	raw = []byte(strings.Replace(string(raw), "100000.00", "1.00", 1))

	_, err := svc.HandleNotification(context.Background(), raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// No state moved on an unauthenticated payload.
	assert.Equal(t, models.PaymentStatusPending, repo.payments[10].Status)
	assert.Nil(t, repo.users[1].ActiveUntil)

	// But the delivery itself was kept for audit.
	require.Len(t, repo.events, 1)
	for _, e := range repo.events {
		assert.False(t, e.SignatureValid)
	}
}

func TestHandleNotificationUnknownOrder(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-nope", "settlement", "100000.00"))
	assert.ErrorIs(t, err, ErrIntentNotFound)
}

func TestHandleNotificationMalformedPayload(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), []byte("{not json"))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = svc.HandleNotification(context.Background(), signedNotification(t, "  ", "settlement", "100000.00"))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestHandleNotificationNonPaidStatusesIgnored(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})

	for _, status := range []string{"pending", "deny", "cancel", "expire", "refund"} {
		res, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", status, "100000.00"))
		require.NoError(t, err, "status %s", status)
		assert.Equal(t, OutcomeIgnored, res.Outcome, "status %s", status)
	}

	assert.Equal(t, models.PaymentStatusPending, repo.payments[10].Status)
	assert.Nil(t, repo.users[1].ActiveUntil)
}

func TestHandleNotificationExpiredIntentStaysExpired(t *testing.T) {
	repo := seedWebhookRepo()
	p := repo.payments[10]
	p.Status = models.PaymentStatusExpired
	repo.payments[10] = p

	svc := newTestService(repo, &fakeGateway{})

	// A late settlement for an already-expired intent never resurrects it.
	res, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", "settlement", "100000.00"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, models.PaymentStatusExpired, repo.payments[10].Status)
	assert.Nil(t, repo.users[1].ActiveUntil)
}

func TestHandleNotificationConfirmsReservation(t *testing.T) {
	repo := seedWebhookRepo()
	promoID := uint(5)
	repo.promotions[5] = openPromotion(5, 50)
	p := repo.payments[10]
	p.PromotionID = &promoID
	p.DiscountPercent = 50
	p.FinalPrice = 50000
	repo.payments[10] = p
	repo.redemptions[redemptionKey(5, 1)] = models.PromotionRedemption{PromotionID: 5, UserID: 1}

	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", "settlement", "50000.00"))
	require.NoError(t, err)

	red := repo.redemptions[redemptionKey(5, 1)]
	require.NotNil(t, red.ConfirmedAt)
	assert.Equal(t, testNow, *red.ConfirmedAt)
}

func TestHandleNotificationConcurrentDeliveries(t *testing.T) {
	repo := seedWebhookRepo()
	svc := newTestService(repo, &fakeGateway{})
	raw := signedNotification(t, "KRS-abc", "settlement", "100000.00")

	const deliveries = 8
	var wg sync.WaitGroup
	results := make([]*NotificationResult, deliveries)
	errs := make([]error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.HandleNotification(context.Background(), raw)
		}(i)
	}
	wg.Wait()

	activated := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		if results[i].Outcome == OutcomeActivated {
			activated++
		} else {
			assert.Equal(t, OutcomeDuplicate, results[i].Outcome)
		}
	}
	assert.Equal(t, 1, activated, "the compare-and-swap must admit exactly one activation")
	assert.Equal(t, testNow.AddDate(0, 0, 30), *repo.users[1].ActiveUntil)
}

func TestRenewalResetsFromActivationInstant(t *testing.T) {
	repo := seedWebhookRepo()
	planID := uint(1)
	remaining := testNow.AddDate(0, 0, 10)
	repo.users[1] = models.User{ID: 1, PlanID: &planID, ActiveUntil: &remaining}

	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", "settlement", "100000.00"))
	require.NoError(t, err)

	// 10 days of remaining time are discarded, not stacked.
	assert.Equal(t, testNow.AddDate(0, 0, 30), *repo.users[1].ActiveUntil)
}

func TestReconcileRepairsLostEntitlementWrite(t *testing.T) {
	repo := seedWebhookRepo()
	repo.failExtendEntitlement = true
	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.HandleNotification(context.Background(), signedNotification(t, "KRS-abc", "settlement", "100000.00"))
	require.Error(t, err)

	// Money was received: the intent is paid even though activation failed.
	p := repo.payments[10]
	assert.Equal(t, models.PaymentStatusPaid, p.Status)
	assert.Nil(t, p.FinalizedAt)
	assert.Nil(t, repo.users[1].ActiveUntil)

	// The sweep replays the side effects once the write path recovers.
	repo.failExtendEntitlement = false
	repaired, err := svc.ReconcilePaidIntents(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	require.NotNil(t, repo.users[1].ActiveUntil)
	// Entitlement is anchored on the recorded payment instant, not on when
	// the sweep happened to run.
	assert.Equal(t, testNow.AddDate(0, 0, 30), *repo.users[1].ActiveUntil)
	require.NotNil(t, repo.payments[10].FinalizedAt)

	// A second sweep finds nothing left to repair.
	repaired, err = svc.ReconcilePaidIntents(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}
