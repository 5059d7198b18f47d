package httputil

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/leverage-engine/internal/common"
)

type IHttpHandler interface {
	Root() string
	SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup)
}

// ParsePublicKey decodes a base58 address or returns a 400 error naming the
// field.
func ParsePublicKey(field, value string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, common.HTTPErrorBadRequest("invalid " + field + " address")
	}
	return pk, nil
}
