package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/domain"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func Error(c *gin.Context, httpErr *common.HttpError) {
	c.JSON(httpErr.StatusCode, Response{
		Success: false,
		Error:   httpErr.Message,
		Code:    httpErr.Code,
		Details: httpErr.Details,
	})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, common.HTTPErrorBadRequest(msg))
}

type tooLargeDetails struct {
	Label       string              `json:"label"`
	Size        int                 `json:"size"`
	Limit       int                 `json:"limit"`
	Overflow    int                 `json:"overflow"`
	Mitigations []domain.Mitigation `json:"mitigations"`
}

type simulationDetails struct {
	Label string   `json:"label"`
	Line  string   `json:"failureLine,omitempty"`
	Logs  []string `json:"logs,omitempty"`
}

// HandleError maps the engine's error taxonomy onto status codes.
func HandleError(c *gin.Context, err error) {
	var (
		httpErr    *common.HttpError
		tooLarge   *domain.TransactionTooLargeError
		simErr     *domain.SimulationFailedError
		submission *domain.SubmissionFailedError
	)

	switch {
	case errors.As(err, &httpErr):
		Error(c, httpErr)
	case errors.Is(err, domain.ErrValidation):
		Error(c, common.HTTPErrorBadRequest(err.Error()))
	case errors.Is(err, domain.ErrQuoteUnavailable):
		Error(c, common.HTTPErrorQuoteUnavailable(err.Error()))
	case errors.As(err, &tooLarge):
		Error(c, common.HTTPErrorTooLarge(err.Error(), tooLargeDetails{
			Label:       tooLarge.Label,
			Size:        tooLarge.Size,
			Limit:       tooLarge.Limit,
			Overflow:    tooLarge.Overflow(),
			Mitigations: tooLarge.Mitigations,
		}))
	case errors.As(err, &simErr):
		Error(c, common.HTTPErrorSimulationFailed(err.Error(), simulationDetails{
			Label: simErr.Label,
			Line:  simErr.Line,
			Logs:  simErr.Logs,
		}))
	case errors.Is(err, domain.ErrSigningRejected):
		Error(c, common.HTTPErrorSigningRejected(err.Error()))
	case errors.As(err, &submission):
		e := common.HTTPErrorSubmissionFailed(err.Error())
		e.Details = gin.H{"onChainEffectUnknown": submission.OnChainEffectUnknown}
		Error(c, e)
	case errors.Is(err, domain.ErrConfirmationTimeout):
		Error(c, common.HTTPErrorGatewayTimeout(err.Error()))
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("[HTTP] unhandled error")
		Error(c, common.HTTPErrorInternalError(err.Error()))
	}
}

type executionDetails struct {
	Execution            *domain.ExecutionResult `json:"execution"`
	OnChainEffectUnknown bool                    `json:"onChainEffectUnknown"`
}

// HandleExecutionError is HandleError for a failed submit-and-confirm. When
// signatures were already issued they are returned so the caller can keep
// polling them.
func HandleExecutionError(c *gin.Context, err error, exec *domain.ExecutionResult) {
	if exec == nil || len(exec.Signatures) == 0 {
		HandleError(c, err)
		return
	}

	var submission *domain.SubmissionFailedError
	switch {
	case errors.Is(err, domain.ErrConfirmationTimeout):
		e := common.HTTPErrorGatewayTimeout(err.Error())
		e.Details = executionDetails{Execution: exec, OnChainEffectUnknown: true}
		Error(c, e)
	case errors.As(err, &submission):
		e := common.HTTPErrorSubmissionFailed(err.Error())
		e.Details = executionDetails{Execution: exec, OnChainEffectUnknown: submission.OnChainEffectUnknown}
		Error(c, e)
	default:
		HandleError(c, err)
	}
}
