package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/claimdesk/pkg/domain/model/config"
)

func TestClaimPolicyAllowsImageType(t *testing.T) {
	p := config.DefaultClaimPolicy()

	for _, ct := range []string{"image/jpeg", "image/png", "IMAGE/WEBP", "image/png; charset=binary"} {
		gt.Bool(t, p.AllowsImageType(ct)).True()
	}
	for _, ct := range []string{"", "image/gif", "application/pdf", "text/plain"} {
		gt.Bool(t, p.AllowsImageType(ct)).False()
	}
}

func TestDefaultClaimPolicyIsIsolated(t *testing.T) {
	p := config.DefaultClaimPolicy()
	p.AllowedImageTypes[0] = "image/gif"
	gt.Value(t, config.DefaultAllowedImageTypes[0]).Equal("image/jpeg")
}
