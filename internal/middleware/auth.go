package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mechshop-dev/mechshop/internal/auth"
	"github.com/mechshop-dev/mechshop/internal/models"
	"github.com/mechshop-dev/mechshop/internal/types"
	"gorm.io/gorm"
)

type AuthenticatedCustomer struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RequireAuth gates a route behind a valid bearer token. The header is parsed
// before the token service is consulted; a missing or malformed header never
// reaches signature verification. On success the resolved customer is stored
// in the request context for handlers downstream.
func RequireAuth(tokens *auth.Manager, conn *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")

		if authHeader == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or malformed"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)

		if len(parts) != 2 || parts[0] != "Bearer" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing or malformed"})
			return
		}

		customerID, err := tokens.Verify(parts[1])

		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		var customer models.Customer

		if err := conn.Where("id = ?", customerID).First(&customer).Error; err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Customer not found"})
			return
		}

		ctx.Set(types.ContextCustomerKey, AuthenticatedCustomer{
			ID:    customer.ID,
			Name:  customer.Name,
			Email: customer.Email,
		})
		ctx.Next()
	}
}
