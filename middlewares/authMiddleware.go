package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/farmasuite/pharma_backend/config"
	"bitbucket.org/farmasuite/pharma_backend/models"
	"bitbucket.org/farmasuite/pharma_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and stamps the request context
// with the acting user and pharmacy. Every tenant-scoped query downstream
// reads the pharmacy id from here, never from the request body.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.PharmacyId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		userId := claims.ID

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, userId)
		ctx = utils.SetPharmacyIdInContext(ctx, claims.PharmacyId)
		ctx = utils.SetIsAdminInContext(ctx, claims.Role == string(models.UserRoleAdmin))

		var user models.User
		db := config.GetDB()
		if db != nil {
			if err := db.WithContext(ctx).Select("username", "name").Where("id = ?", userId).Take(&user).Error; err == nil {
				ctx = utils.SetUsernameInContext(ctx, user.Username)
				ctx = utils.SetUserNameInContext(ctx, user.Name)
			}
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth aborts requests that did not present a valid token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetPharmacyIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireManager limits an endpoint to managers and admins.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
			c.Next()
			return
		}
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		var user models.User
		db := config.GetDB()
		if db == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if err := db.WithContext(ctx).Select("role").Where("id = ?", userId).Take(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if user.Role != models.UserRoleManager && user.Role != models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			c.Abort()
			return
		}
		c.Next()
	}
}
