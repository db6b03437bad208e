package entitlements

import (
	"time"

	"github.com/prasastio/kreasi/app/models"
)

type Tier string

const (
	TierPremium Tier = "premium"
	TierTrial   Tier = "trial"
	TierGrace   Tier = "grace"
	TierExpired Tier = "expired"
)

// GraceWindow is how long after expiry read access survives while payment
// retries land.
const GraceWindow = 24 * time.Hour

// Access is the result of classifying a user's stored timestamps. Allowed
// covers read access; callers gating writes must additionally check
// Tier != TierGrace.
type Access struct {
	Tier           Tier `json:"tier"`
	Allowed        bool `json:"allowed"`
	RemainingHours int  `json:"remaining_hours,omitempty"`
}

// Classify derives the access tier from stored timestamps. Pure function;
// precedence is strict: premium, then trial, then grace, then expired. A
// user whose plan ran out can still fall back to an open trial window.
func Classify(now time.Time, activeUntil, trialEndsAt *time.Time, hasPlan bool) Access {
	if hasPlan && activeUntil != nil && activeUntil.After(now) {
		return Access{Tier: TierPremium, Allowed: true}
	}
	if trialEndsAt != nil && trialEndsAt.After(now) {
		return Access{Tier: TierTrial, Allowed: true}
	}
	if activeUntil != nil && now.Sub(*activeUntil) <= GraceWindow {
		return Access{
			Tier:           TierGrace,
			Allowed:        true,
			RemainingHours: remainingGraceHours(now, *activeUntil),
		}
	}
	return Access{Tier: TierExpired, Allowed: false}
}

// ClassifyUser is Classify applied to a user row.
func ClassifyUser(u *models.User, now time.Time) Access {
	return Classify(now, u.ActiveUntil, u.TrialEndsAt, u.HasPlan())
}

// remainingGraceHours reports the hours left in the grace window, rounded up.
func remainingGraceHours(now, activeUntil time.Time) int {
	left := activeUntil.Add(GraceWindow).Sub(now)
	if left <= 0 {
		return 0
	}
	hours := int(left / time.Hour)
	if left%time.Hour != 0 {
		hours++
	}
	return hours
}
