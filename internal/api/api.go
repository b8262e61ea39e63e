package api

import (
	"errors"
	"net/http"

	"github.com/artfundry/bounty-server/internal/api/middleware"
	"github.com/artfundry/bounty-server/internal/app"
	"github.com/artfundry/bounty-server/internal/services/bounty"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func currentApp(c *gin.Context) *app.App {
	return c.MustGet("app").(*app.App)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return uuid.Nil, false
	}

	userID, ok := value.(uuid.UUID)
	return userID, ok
}

func requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "no authenticated user"})
	}

	return userID, ok
}

// respondError translates service failures into status codes: missing
// bounties are 404, precondition violations 400, underfunded wallets 402,
// everything else a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bounty.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bounty.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, bounty.ErrBadRequest):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"message": err.Error()})
}
