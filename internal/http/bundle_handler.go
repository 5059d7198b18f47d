package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/leverage-engine/internal/common"
	"github.com/hxuan190/leverage-engine/internal/http/httputil"
)

type BundleHandler struct {
	engine Engine
}

func NewBundleHandler(engine Engine) *BundleHandler {
	return &BundleHandler{engine: engine}
}

func (h *BundleHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.submit)
	pub.GET("/:id", h.status)
}

func (h *BundleHandler) Root() string {
	return "/bundle"
}

type SubmitBundleBody struct {
	// Base64 wire transactions, already signed, in execution order
	Transactions []string `json:"transactions" binding:"required"`
}

type SubmitBundleResponse struct {
	BundleID string `json:"bundleId"`
}

// @Summary Submit signed bundle
// @Description Relays up to 5 client-signed transactions as one atomic bundle.
// @Tags bundle
// @Accept json
// @Produce json
// @Param request body SubmitBundleBody true "Signed transactions"
// @Success 200 {object} SubmitBundleResponse
// @Failure 400 {object} httputil.Response "Invalid bundle"
// @Failure 413 {object} httputil.Response "A transaction exceeds 1232 bytes"
// @Failure 502 {object} httputil.Response "Relay rejected the bundle"
// @Router /api/v1/bundle [post]
func (h *BundleHandler) submit(c *gin.Context) {
	var body SubmitBundleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httputil.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	id, err := h.engine.SubmitBundle(c.Request.Context(), body.Transactions)
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	httputil.Success(c, SubmitBundleResponse{BundleID: id})
}

// @Summary Bundle status
// @Tags bundle
// @Produce json
// @Param id path string true "Bundle ID"
// @Success 200 {object} jito.BundleStatus
// @Failure 404 {object} httputil.Response "Unknown bundle"
// @Router /api/v1/bundle/{id} [get]
func (h *BundleHandler) status(c *gin.Context) {
	status, err := h.engine.BundleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleError(c, err)
		return
	}
	if status == nil {
		httputil.Error(c, common.HTTPErrorNotFound("bundle not found"))
		return
	}
	httputil.Success(c, status)
}
