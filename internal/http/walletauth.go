package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Venkey2238/blockchain-evidence/internal/domain/evidence"
	"github.com/Venkey2238/blockchain-evidence/internal/infra/walletauth"
)

const ctxWalletKey = "authenticated_wallet"

// walletParams are the parameter names a claimed identity may arrive under,
// in body, query, or path.
var walletParams = []string{"userWallet", "adminWallet", "wallet", "walletAddress"}

// walletAuth verifies the signature headers whenever a request carries a
// claimed wallet. Requests without one pass through untouched; not every
// endpoint requires wallet auth.
func (s *Server) walletAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimed := extractClaimedWallet(c)
		if claimed == "" {
			c.Next()
			return
		}
		recovered, err := s.verifier.Verify(c.Request.Context(), walletauth.Request{
			ClaimedWallet: claimed,
			Signature:     c.GetHeader("signature"),
			Message:       c.GetHeader("message"),
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			URI:           c.Request.URL.RequestURI(),
		})
		if err != nil {
			s.log.Warn("wallet auth rejected", "path", c.Request.URL.Path, "error", err)
			if s.authAttemptExhausted(c) {
				writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many failed authentication attempts")
			} else {
				writeError(c, err)
			}
			c.Abort()
			return
		}
		c.Set(ctxWalletKey, recovered)
		c.Next()
	}
}

// authWindow is the fixed window for counting failed signature checks.
const authWindow = 15 * time.Minute

// authAttemptExhausted charges one failed verification against the caller's
// window and reports whether the budget is spent. Successful requests are
// never charged, so the limiter only slows brute-force attempts. Limiter
// outages fail open.
func (s *Server) authAttemptExhausted(c *gin.Context) bool {
	if s.limiter == nil || s.authLimitPerWindow <= 0 {
		return false
	}
	decision, err := s.limiter.Allow(c.Request.Context(), "auth:"+c.ClientIP(), s.authLimitPerWindow, authWindow)
	if err != nil {
		s.log.Warn("rate limiter unavailable", "scope", "auth", "error", err)
		return false
	}
	writeRateLimitHeaders(c, decision)
	return !decision.Allowed
}

// identity returns the authenticated wallet attached by walletAuth.
func identity(c *gin.Context) (string, error) {
	wallet := c.GetString(ctxWalletKey)
	if wallet == "" {
		return "", evidence.ErrUnauthorized
	}
	return wallet, nil
}

func extractClaimedWallet(c *gin.Context) string {
	for _, name := range walletParams {
		if v := c.Param(name); v != "" {
			return v
		}
	}
	for _, name := range walletParams {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	ct := c.ContentType()
	switch {
	case strings.HasPrefix(ct, "multipart/form-data"), ct == "application/x-www-form-urlencoded":
		for _, name := range walletParams {
			if v := c.PostForm(name); v != "" {
				return v
			}
		}
	case ct == "application/json":
		return walletFromJSONBody(c)
	}
	return ""
}

// walletFromJSONBody peeks at a JSON body for a claimed wallet and restores
// the body so handlers can still bind it.
func walletFromJSONBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, name := range walletParams {
		rawValue, ok := body[name]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(rawValue, &v); err == nil && v != "" {
			return v
		}
	}
	return ""
}
