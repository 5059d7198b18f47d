// Package common provides shared utilities used across all features
package common

import (
	"fmt"
	"net/http"
)

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    messageOrDefault(msg, "Bad request"),
	}
}

func HTTPErrorNotFound(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    messageOrDefault(msg, "Not found"),
	}
}

func HTTPErrorInternalError(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    messageOrDefault(msg, "Internal server error"),
	}
}

func HTTPErrorQuoteUnavailable(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusNotFound,
		Code:       "QUOTE_UNAVAILABLE",
		Message:    messageOrDefault(msg, "No swap route found"),
	}
}

// HTTPErrorTooLarge carries the ranked mitigations in Details.
func HTTPErrorTooLarge(msg string, details any) *HttpError {
	return &HttpError{
		StatusCode: http.StatusRequestEntityTooLarge,
		Code:       "TRANSACTION_TOO_LARGE",
		Message:    messageOrDefault(msg, "Transaction exceeds size limit"),
		Details:    details,
	}
}

func HTTPErrorSimulationFailed(msg string, details any) *HttpError {
	return &HttpError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "SIMULATION_FAILED",
		Message:    messageOrDefault(msg, "Transaction simulation failed"),
		Details:    details,
	}
}

func HTTPErrorSigningRejected(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusForbidden,
		Code:       "SIGNING_REJECTED",
		Message:    messageOrDefault(msg, "Signing rejected"),
	}
}

func HTTPErrorSubmissionFailed(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusBadGateway,
		Code:       "SUBMISSION_FAILED",
		Message:    messageOrDefault(msg, "Submission failed"),
	}
}

func HTTPErrorGatewayTimeout(msg string) *HttpError {
	return &HttpError{
		StatusCode: http.StatusGatewayTimeout,
		Code:       "CONFIRMATION_TIMEOUT",
		Message:    messageOrDefault(msg, "Confirmation timed out"),
	}
}
