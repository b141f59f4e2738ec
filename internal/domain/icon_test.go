package domain_test

import (
	"testing"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSelectIcon_Priority(t *testing.T) {
	assert.Equal(t, domain.TierDefault, domain.SelectIcon(false, false).Tier)
	assert.Equal(t, domain.TierHighlighted, domain.SelectIcon(false, true).Tier)
	assert.Equal(t, domain.TierHovered, domain.SelectIcon(true, false).Tier)
	assert.Equal(t, domain.TierHovered, domain.SelectIcon(true, true).Tier)
}

func TestSelectIcon_StableForSameTier(t *testing.T) {
	assert.Equal(t, domain.SelectIcon(true, false), domain.SelectIcon(true, true))
	assert.Equal(t, domain.StyleFor(domain.TierHighlighted), domain.SelectIcon(false, true))
}

func TestSelectIcon_ZIndexFollowsTier(t *testing.T) {
	def := domain.SelectIcon(false, false)
	hl := domain.SelectIcon(false, true)
	hov := domain.SelectIcon(true, false)
	assert.Less(t, def.ZIndex, hl.ZIndex)
	assert.Less(t, hl.ZIndex, hov.ZIndex)
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, domain.TierDefault, domain.TierFor("a", "", ""))
	assert.Equal(t, domain.TierHighlighted, domain.TierFor("a", "b", "a"))
	assert.Equal(t, domain.TierHovered, domain.TierFor("a", "a", "a"))
	assert.Equal(t, domain.TierDefault, domain.TierFor("", "", ""))
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "default", domain.TierDefault.String())
	assert.Equal(t, "highlighted", domain.TierHighlighted.String())
	assert.Equal(t, "hovered", domain.TierHovered.String())
}
