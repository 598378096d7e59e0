package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grades-calculator-api/internal/middleware"
	"github.com/noah-isme/grades-calculator-api/internal/models"
	appErrors "github.com/noah-isme/grades-calculator-api/pkg/errors"
	"github.com/noah-isme/grades-calculator-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// currentStudentID returns the caller's id, writing a 401 when no claims are present.
func currentStudentID(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func cacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	return middleware.ExtractMeta(c)
}
