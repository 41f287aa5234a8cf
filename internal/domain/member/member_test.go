package member

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierPremium, ParseTier("premium"))
	assert.Equal(t, TierBasic, ParseTier("basic"))

	// Unknown or hostile values never widen privileges.
	assert.Equal(t, TierBasic, ParseTier(""))
	assert.Equal(t, TierBasic, ParseTier("PREMIUM"))
	assert.Equal(t, TierBasic, ParseTier("gold"))
}

func TestTierSLAWindow(t *testing.T) {
	assert.Equal(t, 24*time.Hour, TierPremium.SLAWindow())
	assert.Equal(t, 96*time.Hour, TierBasic.SLAWindow())
	assert.Equal(t, 96*time.Hour, Tier("whatever").SLAWindow())
}

func TestTierWaivesDeliveryFee(t *testing.T) {
	assert.True(t, TierPremium.WaivesDeliveryFee())
	assert.False(t, TierBasic.WaivesDeliveryFee())
}
