package http

import (
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/leverage-engine/internal/domain"
	"github.com/hxuan190/leverage-engine/internal/http/httputil"
)

// PositionHandler serves the wallet position cache.
type PositionHandler struct {
	engine Engine
}

func NewPositionHandler(engine Engine) *PositionHandler {
	return &PositionHandler{engine: engine}
}

func (h *PositionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:wallet", h.get)
	pub.POST("/:wallet/refresh", h.refresh)
	admin.DELETE("/:wallet", h.invalidate)
}

func (h *PositionHandler) Root() string {
	return "/positions"
}

// @Summary Wallet positions
// @Description Cached positions of a wallet, refreshed when older than the cache max age.
// @Tags positions
// @Produce json
// @Param wallet path string true "Wallet address"
// @Success 200 {object} domain.WalletPositions
// @Failure 400 {object} httputil.Response "Invalid wallet"
// @Router /api/v1/positions/{wallet} [get]
func (h *PositionHandler) get(c *gin.Context) {
	wallet, err := httputil.ParsePublicKey("wallet", c.Param("wallet"))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	positions, err := h.engine.Positions(c.Request.Context(), wallet)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.Success(c, positions)
}

// @Summary Refresh wallet positions
// @Tags positions
// @Produce json
// @Param wallet path string true "Wallet address"
// @Success 200 {object} domain.WalletPositions
// @Router /api/v1/positions/{wallet}/refresh [post]
func (h *PositionHandler) refresh(c *gin.Context) {
	wallet, err := httputil.ParsePublicKey("wallet", c.Param("wallet"))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	positions, err := h.engine.RefreshPositions(c.Request.Context(), wallet)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.Success(c, positions)
}

// @Summary Drop cached wallet positions
// @Tags positions
// @Param wallet path string true "Wallet address"
// @Success 200 {object} httputil.Response
// @Router /api/v1/admin/positions/{wallet} [delete]
func (h *PositionHandler) invalidate(c *gin.Context) {
	wallet, err := httputil.ParsePublicKey("wallet", c.Param("wallet"))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	if err := h.engine.InvalidatePositions(wallet); err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.Success(c, gin.H{"wallet": wallet.String(), "invalidated": true})
}

type VaultHandler struct {
	engine Engine
}

func NewVaultHandler(engine Engine) *VaultHandler {
	return &VaultHandler{engine: engine}
}

func (h *VaultHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.list)
}

func (h *VaultHandler) Root() string {
	return "/vaults"
}

// @Summary List vaults
// @Tags vaults
// @Produce json
// @Success 200 {array} domain.VaultConfig
// @Router /api/v1/vaults [get]
func (h *VaultHandler) list(c *gin.Context) {
	vaults := h.engine.Vaults()
	out := make([]*domain.VaultConfig, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VaultID < out[j].VaultID })
	httputil.Success(c, out)
}
