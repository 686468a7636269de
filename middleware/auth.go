package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spinledger/utils"
)

// ContextAdminKey stores the authenticated admin username in Gin context.
const ContextAdminKey = "admin_username"

// AdminRequired ensures the request carries a valid admin JWT. Tokens are
// short-lived; there is no revocation list for the single shared admin
// identity.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseAdminToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextAdminKey, claims.Username)
		ctx.Next()
	}
}
