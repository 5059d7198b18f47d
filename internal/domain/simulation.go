package domain

type SimulationResult struct {
	Success              bool     `json:"success"`
	Logs                 []string `json:"logs"`
	ComputeUnitsConsumed uint64   `json:"computeUnitsConsumed"`
	Error                string   `json:"error,omitempty"`

	// FailureLine is the first program log line that explains the failure.
	FailureLine string `json:"failureLine,omitempty"`

	InsufficientFunds bool `json:"insufficientFunds"`
	SlippageExceeded  bool `json:"slippageExceeded"`
}

// AsError converts a failed simulation into a SimulationFailedError.
func (r *SimulationResult) AsError(label string) error {
	if r == nil || r.Success {
		return nil
	}
	reason := r.Error
	switch {
	case r.InsufficientFunds:
		reason = "insufficient funds: " + r.Error
	case r.SlippageExceeded:
		reason = "slippage tolerance exceeded: " + r.Error
	}
	return &SimulationFailedError{Label: label, Reason: reason, Line: r.FailureLine, Logs: r.Logs}
}
