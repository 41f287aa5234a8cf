package member

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested member does not exist.
var ErrNotFound = errors.New("member not found")

// Tier enumerates membership levels.
type Tier string

const (
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// ParseTier maps a raw tier string to a Tier, defaulting to basic for
// unknown values so that a malformed claim never widens privileges.
func ParseTier(s string) Tier {
	if Tier(s) == TierPremium {
		return TierPremium
	}
	return TierBasic
}

// SLAWindow returns the advisory processing window for orders placed by a
// member of this tier: 24 hours for premium, 96 hours otherwise.
func (t Tier) SLAWindow() time.Duration {
	if t == TierPremium {
		return 24 * time.Hour
	}
	return 96 * time.Hour
}

// WaivesDeliveryFee reports whether orders from this tier ship for free.
func (t Tier) WaivesDeliveryFee() bool {
	return t == TierPremium
}

// Member represents a registered library member.
type Member struct {
	ID    string
	Name  string
	Email string
	Tier  Tier
}

// Repository defines read operations for members.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Member, error)
}
