package middleware

import (
	"database/sql"
	"errors"

	"github.com/artfundry/bounty-server/internal/app"
	"github.com/artfundry/bounty-server/internal/utils/hashutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserIDKey is where the authenticated user's id lands in the gin context.
const UserIDKey = "user_id"

func AuthenticationMiddleware(ctx *gin.Context) {
	authorization := ctx.Request.Header.Get("Authorization")
	apikey := ctx.Request.Header.Get("X-API-Key")

	app := ctx.MustGet("app").(*app.App)

	if app.Config().DisableAuth {
		// Development mode: trust the caller-provided user id.
		if raw := ctx.Request.Header.Get("X-User-ID"); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				ctx.JSON(400, gin.H{"message": "X-User-ID is not a valid uuid"})
				ctx.Abort()
				return
			}
			ctx.Set(UserIDKey, userID)
		}
		ctx.Next()
		return
	}

	if apikey != "" {
		apikeyHash := hashutil.Sha3256Hash([]byte(apikey))
		result, err := app.APIKeyRepository.GetAPIKeyWithHash(ctx.Request.Context(), apikeyHash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				ctx.JSON(401, gin.H{"message": "The provided API key is invalid"})
				ctx.Abort()
				return
			}

			// Database error
			app.Logger.Error("Database error while checking API key", zap.Error(err))
			ctx.JSON(500, gin.H{"message": "Internal server error checking api-keys in database"})
			ctx.Abort()
			return
		}

		if result.IsRevoked {
			ctx.JSON(401, gin.H{"message": "The provided API key is revoked"})
			ctx.Abort()
			return
		}

		ctx.Set(UserIDKey, result.UserID)
	} else if authorization != "" {
		// TODO: implement token based authorization
		ctx.JSON(401, gin.H{"message": "Token based authorization is not allowed"})
		ctx.Abort()
		return
	} else {
		ctx.JSON(401, gin.H{"message": "Unauthorized access"})
		ctx.Abort()
		return
	}

	ctx.Next()
}
