package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DSroD/PyCon/internal/model"
)

const (
	// tokenCookie carries the signed session token.
	tokenCookie = "token"
	userKey     = "currentUser"
)

// authenticate resolves the session cookie into a user. Disabled accounts
// and stale tokens resolve to nil.
func (h *handlers) authenticate(c *gin.Context) *model.User {
	token, err := c.Cookie(tokenCookie)
	if err != nil || token == "" {
		return nil
	}
	username, err := h.Tokens.Validate(token)
	if err != nil {
		return nil
	}
	user, err := h.Users.Get(c.Request.Context(), username)
	if err != nil || user.Disabled {
		return nil
	}
	return user
}

// requireUser gates page routes. With redirect set, anonymous requests are
// sent to the login page instead of receiving a bare 401.
func (h *handlers) requireUser(redirect bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := h.authenticate(c)
		if user == nil {
			if redirect {
				c.Redirect(http.StatusSeeOther, "/login")
			} else {
				c.Status(http.StatusUnauthorized)
			}
			c.Abort()
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// requireCapability gates management routes on top of requireUser.
func (h *handlers) requireCapability(caps ...model.UserCapability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil || !user.HasCapabilities(caps...) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *model.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}
