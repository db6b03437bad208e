package billing

import "errors"

// Checkout failure taxonomy. None of these are retryable without new input;
// persistence failures are returned wrapped and are retryable.
var (
	ErrPlanUnavailable      = errors.New("plan does not exist or is not active")
	ErrPromotionAlreadyUsed = errors.New("promotion already redeemed by this user")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
)

// Notification failure taxonomy.
var (
	ErrMalformedPayload = errors.New("malformed notification payload")
	ErrInvalidSignature = errors.New("invalid notification signature")
	ErrIntentNotFound   = errors.New("no checkout intent for order id")
	ErrPlanDataMissing  = errors.New("plan data missing for paid intent")
)
