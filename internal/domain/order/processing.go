package order

// Phase tags the variants of ProcessingState. The set is closed: consumers
// switch over it exhaustively and treat an unknown tag as a bug.
type Phase string

const (
	// PhaseIdle is the initial state before any order has been processed.
	PhaseIdle Phase = "idle"
	// PhaseProcessing carries the order currently being worked and its
	// progress percentage.
	PhaseProcessing Phase = "processing"
	// PhaseCompleted is terminal for an order that passed both checks.
	PhaseCompleted Phase = "completed"
	// PhaseError is terminal for an order whose processing failed.
	PhaseError Phase = "error"
)

// ProcessingState is the tagged variant published on the order-state cell.
// Only the fields belonging to the tagged phase are meaningful: Progress for
// PhaseProcessing, Success and Message for PhaseCompleted, Err (and an
// OrderID when known) for PhaseError. Transitions are driven exclusively by
// the processing pipeline.
type ProcessingState struct {
	Phase   Phase
	OrderID int64
	// Progress is the 0-100 completion percentage while processing.
	Progress int
	Success  bool
	Message  string
	Err      error
}

// Idle returns the initial processing state.
func Idle() ProcessingState {
	return ProcessingState{Phase: PhaseIdle}
}

// Processing returns a state tagged as in-progress for the given order.
func Processing(orderID int64, progress int) ProcessingState {
	return ProcessingState{Phase: PhaseProcessing, OrderID: orderID, Progress: progress}
}

// Completed returns the terminal success state for the given order.
func Completed(orderID int64, success bool, message string) ProcessingState {
	return ProcessingState{Phase: PhaseCompleted, OrderID: orderID, Progress: 100, Success: success, Message: message}
}

// Failed returns the terminal error state. orderID may be zero when the
// failure happened before an order was identified.
func Failed(orderID int64, err error) ProcessingState {
	return ProcessingState{Phase: PhaseError, OrderID: orderID, Err: err}
}

// Terminal reports whether the state is one of the two terminal phases.
func (s ProcessingState) Terminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseError
}
