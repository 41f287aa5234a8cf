package order

import "fmt"

// InvalidTransitionError indicates a status change that the lifecycle graph
// does not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// transitions is the order lifecycle graph. Standard fulfillment runs
// pending → processing → shipped → delivered, with cancellation possible
// before shipment. A delivered order may enter the exchange/refund track via
// return_requested; an accepted and returned order then either gets refunded
// or re-enters fulfillment at processing for a replacement shipment.
var transitions = map[Status][]Status{
	StatusPending:         {StatusProcessing, StatusCancelled},
	StatusProcessing:      {StatusShipped, StatusCancelled},
	StatusShipped:         {StatusDelivered},
	StatusDelivered:       {StatusReturnRequested},
	StatusReturnRequested: {StatusReturnAccepted, StatusReturnRejected},
	StatusReturnAccepted:  {StatusReturned},
	StatusReturned:        {StatusRefundInitiated, StatusProcessing},
	StatusRefundInitiated: {StatusRefunded},

	// Terminal states.
	StatusCancelled:      nil,
	StatusRefunded:       nil,
	StatusReturnRejected: nil,
}

// CanTransition reports whether the lifecycle graph allows moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
