package order

import (
	"time"

	"github.com/openshelf/elib/internal/domain/member"
)

// Track identifies which progress stepper an order is rendered on.
type Track string

const (
	// TrackStandard is the normal fulfillment progression.
	TrackStandard Track = "standard"
	// TrackRefund is the exchange track branch ending in a refund.
	TrackRefund Track = "refund"
	// TrackReshipment is the exchange track branch ending in a replacement
	// delivery.
	TrackReshipment Track = "reshipment"
)

// Progress is the derived stepper position for an order. It is a pure
// function of the order snapshot and carries no state of its own.
type Progress struct {
	Track Track
	Step  int
	// Cancelled marks the distinct terminal rendering of a cancelled order
	// on the standard track.
	Cancelled bool
	// ReturnRejected marks the terminal error rendering on the exchange
	// track, outside the numeric progression.
	ReturnRejected bool
}

// ComputeProgress maps an order's status onto a discrete stepper position.
// Orders carrying a return reason are rendered on the exchange/refund track;
// all others on the standard fulfillment track.
func ComputeProgress(o *Order) Progress {
	if o.Return.Reason == "" {
		return standardProgress(o.Status)
	}
	return exchangeProgress(o.Status)
}

func standardProgress(s Status) Progress {
	p := Progress{Track: TrackStandard}
	switch s {
	case StatusPending:
		p.Step = 1
	case StatusProcessing:
		p.Step = 2
	case StatusShipped:
		p.Step = 3
	case StatusDelivered:
		p.Step = 4
	case StatusCancelled:
		p.Step = 0
		p.Cancelled = true
	}
	return p
}

func exchangeProgress(s Status) Progress {
	switch s {
	case StatusReturnRequested:
		return Progress{Track: TrackRefund, Step: 0}
	case StatusReturnAccepted:
		return Progress{Track: TrackRefund, Step: 1}
	case StatusReturned:
		return Progress{Track: TrackRefund, Step: 2}
	case StatusRefundInitiated:
		return Progress{Track: TrackRefund, Step: 3}
	case StatusRefunded:
		return Progress{Track: TrackRefund, Step: 4}
	case StatusReturnRejected:
		return Progress{Track: TrackRefund, ReturnRejected: true}
	case StatusProcessing:
		return Progress{Track: TrackReshipment, Step: 3}
	case StatusShipped:
		return Progress{Track: TrackReshipment, Step: 4}
	case StatusDelivered:
		return Progress{Track: TrackReshipment, Step: 5}
	}
	return Progress{Track: TrackRefund}
}

// Urgency buckets the remaining share of an SLA window for display.
type Urgency string

const (
	UrgencyNeutral Urgency = "neutral"
	UrgencyWarning Urgency = "warning"
	UrgencyUrgent  Urgency = "urgent"
)

// Countdown is the advisory SLA state for a pending or processing order.
// It enforces nothing: expiry only flips the Overdue flag.
type Countdown struct {
	Deadline   time.Time
	Remaining  time.Duration
	Percentage float64
	Urgency    Urgency
	Overdue    bool
}

// ComputeCountdown derives the SLA countdown for an order created at
// createdAt by a member of the given tier, evaluated at now. A zero
// createdAt (malformed or missing timestamp) degrades to an already-overdue
// countdown rather than failing.
func ComputeCountdown(createdAt time.Time, tier member.Tier, now time.Time) Countdown {
	window := tier.SLAWindow()

	if createdAt.IsZero() {
		return Countdown{Urgency: UrgencyUrgent, Overdue: true}
	}

	deadline := createdAt.Add(window)
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return Countdown{Deadline: deadline, Urgency: UrgencyUrgent, Overdue: true}
	}

	pct := float64(remaining) / float64(window) * 100
	if pct > 100 {
		pct = 100
	}

	u := UrgencyNeutral
	switch {
	case pct < 25:
		u = UrgencyUrgent
	case pct < 50:
		u = UrgencyWarning
	}

	return Countdown{
		Deadline:   deadline,
		Remaining:  remaining,
		Percentage: pct,
		Urgency:    u,
	}
}
