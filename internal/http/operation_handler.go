package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/engine"
	"github.com/hxuan190/leverage-engine/internal/http/httputil"
)

// OperationHandler builds leverage, deleverage and rebalance plans.
type OperationHandler struct {
	engine Engine
}

func NewOperationHandler(engine Engine) *OperationHandler {
	return &OperationHandler{engine: engine}
}

func (h *OperationHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/leverage", h.leverage)
	pub.POST("/deleverage", h.deleverage)
	pub.POST("/rebalance", h.rebalance)
}

func (h *OperationHandler) Root() string {
	return ""
}

// SwapOperationBody is the request for leverage and deleverage.
type SwapOperationBody struct {
	// Wallet that owns the position and signs the plan
	Wallet string `json:"wallet" binding:"required" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`

	VaultID uint32 `json:"vaultId" binding:"required" example:"1"`
	// Omit to use the wallet's cached position in the vault
	PositionID uint32 `json:"positionId" example:"42"`

	// UI-scale decimal: debt units for leverage, collateral units for deleverage
	Amount string `json:"amount" binding:"required" example:"6.0"`

	SlippageBps      uint16   `json:"slippageBps" example:"50"`
	PreferredDexes   []string `json:"preferredDexes" example:"Orca,Raydium"`
	DirectRoutesOnly bool     `json:"directRoutesOnly"`
	MaxAccounts      int      `json:"maxAccounts" example:"40"`

	// Fall back to a relay bundle when one transaction is too large
	AllowBundle    bool `json:"allowBundle"`
	ForceBundle    bool `json:"forceBundle"`
	SkipSimulation bool `json:"skipSimulation"`
	// Sign and submit with the server signer
	Execute bool `json:"execute"`
}

type RebalanceBody struct {
	Wallet           string `json:"wallet" binding:"required"`
	SourceVaultID    uint32 `json:"sourceVaultId" binding:"required" example:"1"`
	SourcePositionID uint32 `json:"sourcePositionId" example:"42"`
	TargetVaultID    uint32 `json:"targetVaultId" binding:"required" example:"2"`
	TargetPositionID uint32 `json:"targetPositionId" example:"43"`
	ForceBundle      bool   `json:"forceBundle"`
	Execute          bool   `json:"execute"`
}

type BuildResponse struct {
	*domain.BuildResult
	Execution *domain.ExecutionResult `json:"execution,omitempty"`
}

func (b *SwapOperationBody) toRequest() (domain.SwapOperationRequest, error) {
	wallet, err := httputil.ParsePublicKey("wallet", b.Wallet)
	if err != nil {
		return domain.SwapOperationRequest{}, err
	}
	amount, err := decimal.NewFromString(b.Amount)
	if err != nil {
		return domain.SwapOperationRequest{}, domain.NewValidationError("amount", "not a decimal number")
	}
	return domain.SwapOperationRequest{
		Wallet:           wallet,
		Position:         domain.PositionKey{VaultID: b.VaultID, PositionID: b.PositionID},
		Amount:           amount,
		SlippageBps:      b.SlippageBps,
		PreferredDexes:   b.PreferredDexes,
		DirectRoutesOnly: b.DirectRoutesOnly,
		MaxAccounts:      b.MaxAccounts,
		AllowBundle:      b.AllowBundle,
		ForceBundle:      b.ForceBundle,
		SkipSimulation:   b.SkipSimulation,
	}, nil
}

// @Summary Build leverage plan
// @Description Flash-borrows debt, swaps it to collateral and deposits the output in one transaction.
// @Description Returns a bundle instead when allowBundle is set and the single transaction exceeds 1232 bytes.
// @Tags operations
// @Accept json
// @Produce json
// @Param request body SwapOperationBody true "Leverage request"
// @Success 200 {object} BuildResponse
// @Failure 400 {object} httputil.Response "Invalid request"
// @Failure 404 {object} httputil.Response "No swap route"
// @Failure 413 {object} httputil.Response "Transaction too large, details carry mitigations"
// @Failure 422 {object} httputil.Response "Simulation failed"
// @Router /api/v1/leverage [post]
func (h *OperationHandler) leverage(c *gin.Context) {
	h.swapOperation(c, h.engine.Leverage)
}

// @Summary Build deleverage plan
// @Description Flash-borrows collateral, swaps it to debt, repays and withdraws.
// @Tags operations
// @Accept json
// @Produce json
// @Param request body SwapOperationBody true "Deleverage request"
// @Success 200 {object} BuildResponse
// @Failure 400 {object} httputil.Response "Invalid request"
// @Failure 404 {object} httputil.Response "No swap route"
// @Failure 413 {object} httputil.Response "Transaction too large"
// @Failure 422 {object} httputil.Response "Simulation failed"
// @Router /api/v1/deleverage [post]
func (h *OperationHandler) deleverage(c *gin.Context) {
	h.swapOperation(c, h.engine.Deleverage)
}

type swapBuild func(ctx context.Context, req domain.SwapOperationRequest) (*domain.BuildResult, error)

func (h *OperationHandler) swapOperation(c *gin.Context, build swapBuild) {
	var body SwapOperationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	req, err := body.toRequest()
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	res, err := build(c.Request.Context(), req)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	h.respond(c, res, body.Execute)
}

// @Summary Build rebalance plan
// @Description Moves collateral from the healthier position to the riskier one so both end at the same LTV.
// @Description An empty plan with a reason is returned when no move helps. Rebalance plans are always simulated.
// @Tags operations
// @Accept json
// @Produce json
// @Param request body RebalanceBody true "Rebalance request"
// @Success 200 {object} BuildResponse
// @Failure 400 {object} httputil.Response "Invalid request"
// @Failure 422 {object} httputil.Response "Simulation failed"
// @Router /api/v1/rebalance [post]
func (h *OperationHandler) rebalance(c *gin.Context) {
	var body RebalanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	wallet, err := httputil.ParsePublicKey("wallet", body.Wallet)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}

	res, err := h.engine.Rebalance(c.Request.Context(), domain.RebalanceRequest{
		Wallet:      wallet,
		Source:      domain.PositionKey{VaultID: body.SourceVaultID, PositionID: body.SourcePositionID},
		Target:      domain.PositionKey{VaultID: body.TargetVaultID, PositionID: body.TargetPositionID},
		ForceBundle: body.ForceBundle,
	})
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	h.respond(c, res, body.Execute)
}

func (h *OperationHandler) respond(c *gin.Context, res *domain.BuildResult, execute bool) {
	out := BuildResponse{BuildResult: res}
	if execute && res.Plan != nil {
		exec, err := h.engine.Execute(c.Request.Context(), res.Plan, nil)
		if errors.Is(err, engine.ErrNoSigner) {
			httputil.BadRequest(c, "execute requested but the server has no signer")
			return
		}
		if err != nil {
			httputil.HandleExecutionError(c, err, exec)
			return
		}
		out.Execution = exec
	}
	httputil.Success(c, out)
}
