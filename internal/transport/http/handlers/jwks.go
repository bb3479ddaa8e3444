package handlers

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
)

const jwksCacheControl = "public, max-age=3600"

// KeySetProvider enumerates the public keys clients may verify tokens with.
type KeySetProvider interface {
	PublicKeys() map[string]*rsa.PublicKey
}

// JWK is one RSA public key in JSON Web Key form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSResponse is the key set payload.
type JWKSResponse struct {
	Keys []JWK `json:"keys"`
}

// JWKSHandler serves the JSON Web Key Set for offline token verification.
type JWKSHandler struct {
	provider KeySetProvider
}

// NewJWKSHandler constructs a JWKS handler over the supplied provider.
func NewJWKSHandler(provider KeySetProvider) *JWKSHandler {
	return &JWKSHandler{provider: provider}
}

// Keys renders every verification key.
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.provider == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	keys := h.provider.PublicKeys()
	kids := make([]string, 0, len(keys))
	for kid := range keys {
		kids = append(kids, kid)
	}
	sort.Strings(kids)

	resp := JWKSResponse{Keys: make([]JWK, 0, len(kids))}
	for _, kid := range kids {
		key := keys[kid]
		resp.Keys = append(resp.Keys, JWK{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.JSON(http.StatusOK, resp)
}
