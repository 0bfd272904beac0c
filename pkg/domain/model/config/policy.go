package config

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultMaxImageBytes     int64 = 10 << 20
	DefaultMaxImagesPerClaim       = 10
)

// DefaultAllowedImageTypes are accepted when no policy file is given
var DefaultAllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// ClaimPolicy holds the intake limits and display settings
type ClaimPolicy struct {
	AllowedImageTypes []string
	MaxImageBytes     int64
	MaxImagesPerClaim int
	CurrencySymbol    string
	SessionTTL        time.Duration
}

// DefaultClaimPolicy returns the policy used without a configuration file
func DefaultClaimPolicy() *ClaimPolicy {
	return &ClaimPolicy{
		AllowedImageTypes: slices.Clone(DefaultAllowedImageTypes),
		MaxImageBytes:     DefaultMaxImageBytes,
		MaxImagesPerClaim: DefaultMaxImagesPerClaim,
		CurrencySymbol:    "₹",
		SessionTTL:        7 * 24 * time.Hour,
	}
}

// AllowsImageType matches the media type, ignoring parameters and case
func (p *ClaimPolicy) AllowsImageType(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	return slices.Contains(p.AllowedImageTypes, mt)
}
