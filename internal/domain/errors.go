package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrQuoteUnavailable    = errors.New("quote unavailable")
	ErrTransactionTooLarge = errors.New("transaction too large")
	ErrSimulationFailed    = errors.New("simulation failed")
	ErrSigningRejected     = errors.New("signing rejected")
	ErrSubmissionFailed    = errors.New("submission failed")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type QuoteUnavailableError struct {
	Attempts []string
	LastErr  error
}

func (e *QuoteUnavailableError) Error() string {
	msg := fmt.Sprintf("no route after %d attempts [%s]", len(e.Attempts), strings.Join(e.Attempts, ", "))
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *QuoteUnavailableError) Unwrap() error { return ErrQuoteUnavailable }

type MitigationKind string

const (
	MitigationReduceMaxAccounts MitigationKind = "reduce_max_accounts"
	MitigationDirectRoutesOnly  MitigationKind = "direct_routes_only"
	MitigationBundleMode        MitigationKind = "bundle_mode"
)

type Mitigation struct {
	Kind        MitigationKind `json:"kind"`
	Description string         `json:"description"`
	MaxAccounts int            `json:"maxAccounts,omitempty"`
}

// TransactionTooLargeError carries the measured size and the remediation
// ladder, best option first. Mitigations are never applied automatically.
type TransactionTooLargeError struct {
	Label       string
	Size        int
	Limit       int
	Mitigations []Mitigation
}

func (e *TransactionTooLargeError) Overflow() int {
	return e.Size - e.Limit
}

func (e *TransactionTooLargeError) Error() string {
	return fmt.Sprintf("transaction %q is %d bytes, %d over the %d byte limit", e.Label, e.Size, e.Overflow(), e.Limit)
}

func (e *TransactionTooLargeError) Unwrap() error { return ErrTransactionTooLarge }

// RankMitigations builds the ladder for an overflow. Route-shaping options
// only apply when the transaction carries a swap.
func RankMitigations(overflow int, hasSwap bool, maxAccounts int) []Mitigation {
	out := make([]Mitigation, 0, 3)
	if hasSwap {
		if maxAccounts <= 0 {
			maxAccounts = DefaultMaxAccounts
		}
		// an account outside a lookup table costs 32 bytes, inside one it costs 1
		suggested := maxAccounts - (overflow+31)/32 - 4
		if suggested < MinMaxAccounts {
			suggested = MinMaxAccounts
		}
		if suggested < maxAccounts {
			out = append(out, Mitigation{
				Kind:        MitigationReduceMaxAccounts,
				Description: fmt.Sprintf("limit the swap route to %d accounts", suggested),
				MaxAccounts: suggested,
			})
		}
		out = append(out, Mitigation{
			Kind:        MitigationDirectRoutesOnly,
			Description: "restrict the swap to direct routes",
		})
	}
	out = append(out, Mitigation{
		Kind:        MitigationBundleMode,
		Description: "split the operation into a relay bundle",
	})
	return out
}

const (
	DefaultMaxAccounts = 64
	MinMaxAccounts     = 16
)

type SimulationFailedError struct {
	Label  string
	Reason string
	// Line is the decoded failing log line, when one was found.
	Line string
	Logs []string
}

func (e *SimulationFailedError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("simulation of %q failed: %s (%s)", e.Label, e.Reason, e.Line)
	}
	return fmt.Sprintf("simulation of %q failed: %s", e.Label, e.Reason)
}

func (e *SimulationFailedError) Unwrap() error { return ErrSimulationFailed }

type SigningRejectedError struct {
	Err error
}

func (e *SigningRejectedError) Error() string {
	return "signing rejected: " + e.Err.Error()
}

func (e *SigningRejectedError) Unwrap() []error { return []error{ErrSigningRejected, e.Err} }

// SubmissionFailedError is raised after signing. OnChainEffectUnknown is set
// when the transport may have accepted the payload before failing.
type SubmissionFailedError struct {
	Stage                string
	Err                  error
	OnChainEffectUnknown bool
}

func (e *SubmissionFailedError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	if e.OnChainEffectUnknown {
		msg += " (on-chain effect unknown)"
	}
	return msg
}

func (e *SubmissionFailedError) Unwrap() []error { return []error{ErrSubmissionFailed, e.Err} }

type ConfirmationTimeoutError struct {
	Signature string
	Waited    time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("transaction %s not confirmed after %s, on-chain effect unknown", e.Signature, e.Waited)
}

func (e *ConfirmationTimeoutError) Unwrap() error { return ErrConfirmationTimeout }

// IsBuildError reports whether err was raised before any signature request.
func IsBuildError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrQuoteUnavailable) ||
		errors.Is(err, ErrTransactionTooLarge) ||
		errors.Is(err, ErrSimulationFailed)
}
