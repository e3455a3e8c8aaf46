package executor

import (
	"context"
	"errors"
	"net"
	"strings"

	"flasharb/pkg/types"
)

// ErrGasPriceTooHigh rejects an execution before it starts when the current
// gas price is above the configured maximum. No record is created.
var ErrGasPriceTooHigh = errors.New("gas price above configured maximum")

// CategorizedError carries an explicit failure category through the
// execution path, for failures whose origin already knows their class.
type CategorizedError struct {
	Category types.ErrorCategory
	Reason   string
}

func (e *CategorizedError) Error() string {
	return e.Reason
}

// Classify maps an execution error onto the failure taxonomy surfaced to
// callers and the notification layer. Anything unrecognized is unknown, not
// silently folded into another bucket.
func Classify(err error) types.ErrorCategory {
	if err == nil {
		return ""
	}

	var categorized *CategorizedError
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return types.ErrNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user denied"), strings.Contains(msg, "user rejected"):
		return types.ErrUserRejected
	case strings.Contains(msg, "insufficient funds"):
		return types.ErrInsufficientFunds
	case strings.Contains(msg, "execution reverted"), strings.Contains(msg, "revert"):
		return types.ErrReverted
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection reset"):
		return types.ErrNetwork
	default:
		return types.ErrUnknown
	}
}

// RevertReason extracts the human-readable revert reason from a node error,
// when one is present.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted:"):])
	}
	return msg
}
