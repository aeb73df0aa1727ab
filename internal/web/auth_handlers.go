package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DSroD/PyCon/internal/auth"
)

func (h *handlers) loginPage(c *gin.Context) {
	if h.authenticate(c) != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (h *handlers) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.Users.Get(c.Request.Context(), username)
	if err != nil || user.Disabled || !auth.VerifyPassword(user.HashedPassword, password) {
		// One message for every failure mode; the form reveals nothing
		// about which accounts exist.
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error": "Invalid username or password.",
		})
		return
	}

	token, err := h.Tokens.Issue(user.Username)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to issue token")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.SetCookie(tokenCookie, token, int(h.Tokens.Lifetime().Seconds()), "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *handlers) logout(c *gin.Context) {
	c.SetCookie(tokenCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/login")
}
