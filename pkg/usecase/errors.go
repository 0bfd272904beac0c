package usecase

import (
	"errors"

	"github.com/secmon-lab/claimdesk/pkg/domain/model"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrClaimNotFound = errors.New("claim not found")
	ErrImageNotFound = errors.New("image not found")
	ErrUserNotFound  = errors.New("user not found")

	// Access control errors
	ErrUnauthenticated = errors.New("authentication required")
	ErrAccessDenied    = errors.New("access denied")

	// Input and state errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrClaimClosed       = errors.New("claim is closed")
	ErrImageLimitReached = errors.New("image limit reached")

	// Dependency errors
	ErrAnalyzerDisabled = errors.New("analyzer is not configured")
)

// Context keys for error values
const (
	ClaimIDKey = "claim_id"
	ImageIDKey = "image_id"
	UserIDKey  = "user_id"
)
