package billing

import (
	"context"
	"testing"
	"time"

	"github.com/prasastio/kreasi/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireStaleIntents(t *testing.T) {
	repo := newFakeRepo()
	promoID := uint(5)
	repo.promotions[5] = openPromotion(5, 50)

	// Two hours old with a live reservation: must expire and release.
	repo.payments[1] = models.Payment{
		ID:          1,
		UserID:      1,
		PlanID:      1,
		PromotionID: &promoID,
		OrderID:     "KRS-stale",
		Status:      models.PaymentStatusPending,
		CreatedAt:   testNow.Add(-2 * time.Hour),
	}
	repo.redemptions[redemptionKey(5, 1)] = models.PromotionRedemption{PromotionID: 5, UserID: 1}

	// Five minutes old: still inside the checkout window.
	repo.payments[2] = models.Payment{
		ID:        2,
		UserID:    2,
		PlanID:    1,
		OrderID:   "KRS-fresh",
		Status:    models.PaymentStatusPending,
		CreatedAt: testNow.Add(-5 * time.Minute),
	}
	repo.nextPayID = 2

	svc := newTestService(repo, &fakeGateway{})

	expired, err := svc.ExpireStaleIntents(context.Background(), time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, models.PaymentStatusExpired, repo.payments[1].Status)
	assert.Equal(t, models.PaymentStatusPending, repo.payments[2].Status)

	// The promotion is redeemable again for that user.
	_, held := repo.redemptions[redemptionKey(5, 1)]
	assert.False(t, held)
}

func TestExpireStaleIntentsKeepsConfirmedRedemptions(t *testing.T) {
	repo := newFakeRepo()
	promoID := uint(5)
	repo.promotions[5] = openPromotion(5, 50)

	confirmed := testNow.Add(-time.Hour)
	repo.payments[1] = models.Payment{
		ID:          1,
		UserID:      1,
		PlanID:      1,
		PromotionID: &promoID,
		OrderID:     "KRS-odd",
		Status:      models.PaymentStatusPending,
		CreatedAt:   testNow.Add(-3 * time.Hour),
	}
	repo.redemptions[redemptionKey(5, 1)] = models.PromotionRedemption{PromotionID: 5, UserID: 1, ConfirmedAt: &confirmed}
	repo.nextPayID = 1

	svc := newTestService(repo, &fakeGateway{})

	_, err := svc.ExpireStaleIntents(context.Background(), time.Hour, 100)
	require.NoError(t, err)

	// Only unconfirmed reservations are released.
	_, held := repo.redemptions[redemptionKey(5, 1)]
	assert.True(t, held)
}

func TestExpireStaleIntentsRetryAfterReleaseFailure(t *testing.T) {
	repo := newFakeRepo()
	promoID := uint(5)
	repo.promotions[5] = openPromotion(5, 50)
	repo.payments[1] = models.Payment{
		ID:          1,
		UserID:      1,
		PlanID:      1,
		PromotionID: &promoID,
		OrderID:     "KRS-stuck",
		Status:      models.PaymentStatusPending,
		CreatedAt:   testNow.Add(-2 * time.Hour),
	}
	repo.redemptions[redemptionKey(5, 1)] = models.PromotionRedemption{PromotionID: 5, UserID: 1}
	repo.nextPayID = 1

	svc := newTestService(repo, &fakeGateway{})

	repo.failDeleteRedemption = true
	expired, err := svc.ExpireStaleIntents(context.Background(), time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)

	// The failed release rolled the close back; the intent stays pending so
	// the next sweep sees it again.
	assert.Equal(t, models.PaymentStatusPending, repo.payments[1].Status)
	_, held := repo.redemptions[redemptionKey(5, 1)]
	assert.True(t, held)

	repo.failDeleteRedemption = false
	expired, err = svc.ExpireStaleIntents(context.Background(), time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, models.PaymentStatusExpired, repo.payments[1].Status)
	_, held = repo.redemptions[redemptionKey(5, 1)]
	assert.False(t, held)
}

func TestExpireStaleIntentsLosesRaceToSettlement(t *testing.T) {
	repo := newFakeRepo()
	repo.plans[1] = models.Plan{ID: 1, Price: 100000, DurationDays: 30, IsActive: true}
	repo.users[1] = models.User{ID: 1}
	repo.payments[1] = models.Payment{
		ID:        1,
		UserID:    1,
		PlanID:    1,
		OrderID:   "KRS-late",
		Status:    models.PaymentStatusPending,
		CreatedAt: testNow.Add(-2 * time.Hour),
	}
	repo.nextPayID = 1

	svc := newTestService(repo, &fakeGateway{})

	// A settlement lands between the sweep's read and its close.
	won, err := repo.MarkPaymentPaid(1, testNow)
	require.NoError(t, err)
	require.True(t, won)

	expired, err := svc.ExpireStaleIntents(context.Background(), time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, expired)
	assert.Equal(t, models.PaymentStatusPaid, repo.payments[1].Status)
}

func TestExpireStaleIntentsHonorsLimit(t *testing.T) {
	repo := newFakeRepo()
	for i := uint(1); i <= 5; i++ {
		repo.payments[i] = models.Payment{
			ID:        i,
			UserID:    i,
			PlanID:    1,
			OrderID:   "KRS-" + string(rune('a'+i)),
			Status:    models.PaymentStatusPending,
			CreatedAt: testNow.Add(-2 * time.Hour),
		}
	}
	repo.nextPayID = 5

	svc := newTestService(repo, &fakeGateway{})

	expired, err := svc.ExpireStaleIntents(context.Background(), time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
}
