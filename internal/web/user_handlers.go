package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DSroD/PyCon/internal/auth"
	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/store"
)

type userForm struct {
	Username     string   `form:"username"`
	Password     string   `form:"password"`
	Capabilities []string `form:"capabilities[]"`
	Disabled     bool     `form:"disabled"`
}

func capabilitiesFrom(names []string) []model.UserCapability {
	var caps []model.UserCapability
	for _, name := range names {
		switch cap := model.UserCapability(name); cap {
		case model.CapUserManagement, model.CapServerManagement:
			caps = append(caps, cap)
		}
	}
	return caps
}

func (h *handlers) createUser(c *gin.Context) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil || form.Username == "" || form.Password == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if _, err := h.Users.Get(c.Request.Context(), form.Username); err == nil {
		c.String(http.StatusConflict, "user already exists")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	user := model.User{
		UserView: model.UserView{
			Username:     form.Username,
			Capabilities: capabilitiesFrom(form.Capabilities),
		},
		HashedPassword: hash,
		Disabled:       form.Disabled,
	}
	if err := h.Users.Upsert(c.Request.Context(), user); err != nil {
		h.Logger.Error().Err(err).Msg("failed to create user")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage/users")
}

func (h *handlers) updateUser(c *gin.Context) {
	username := c.Param("username")
	existing, err := h.Users.Get(c.Request.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	// Admins cannot lock themselves out mid-session.
	if acting := currentUser(c); acting.Username == username && form.Disabled {
		c.String(http.StatusBadRequest, "cannot disable your own account")
		return
	}

	user := *existing
	user.Capabilities = capabilitiesFrom(form.Capabilities)
	user.Disabled = form.Disabled
	if form.Password != "" {
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		user.HashedPassword = hash
	}

	if err := h.Users.Upsert(c.Request.Context(), user); err != nil {
		h.Logger.Error().Err(err).Msg("failed to update user")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage/users")
}

func (h *handlers) deleteUser(c *gin.Context) {
	username := c.Param("username")
	if acting := currentUser(c); acting.Username == username {
		c.String(http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := h.Users.Delete(c.Request.Context(), username); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.Logger.Error().Err(err).Msg("failed to delete user")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage/users")
}
