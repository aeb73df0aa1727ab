package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/store"
)

// serverForm is the create/update payload posted by the management page.
type serverForm struct {
	Type         string `form:"type" binding:"required"`
	Name         string `form:"name" binding:"required"`
	Host         string `form:"host" binding:"required"`
	Port         int    `form:"port" binding:"required"`
	RconPort     int    `form:"rcon_port" binding:"required"`
	RconPassword string `form:"rcon_password"`
	Description  string `form:"description"`
}

func (f serverForm) validate() error {
	switch model.ServerType(f.Type) {
	case model.MinecraftServer, model.SourceServer:
	default:
		return errors.New("unknown server type " + f.Type)
	}
	for _, port := range []int{f.Port, f.RconPort} {
		if port < 1 || port > 65535 {
			return errors.New("port " + strconv.Itoa(port) + " out of range")
		}
	}
	return nil
}

func (h *handlers) createServer(c *gin.Context) {
	var form serverForm
	if err := c.ShouldBind(&form); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if err := form.validate(); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	server := model.Server{
		UID:          uuid.New(),
		Type:         model.ServerType(form.Type),
		Name:         form.Name,
		Host:         form.Host,
		Port:         form.Port,
		RconPort:     form.RconPort,
		RconPassword: form.RconPassword,
		Description:  form.Description,
	}
	if err := h.Servers.Upsert(c.Request.Context(), server); err != nil {
		h.Logger.Error().Err(err).Msg("failed to create server")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// The service belongs to the application, not to this request.
	h.Runtime.LaunchServer(server)
	c.Redirect(http.StatusSeeOther, "/manage/servers")
}

func (h *handlers) updateServer(c *gin.Context) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	existing, err := h.Servers.Get(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	var form serverForm
	if err := c.ShouldBind(&form); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if err := form.validate(); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	server := model.Server{
		UID:          uid,
		Type:         model.ServerType(form.Type),
		Name:         form.Name,
		Host:         form.Host,
		Port:         form.Port,
		RconPort:     form.RconPort,
		RconPassword: form.RconPassword,
		Description:  form.Description,
	}
	// An empty password on update keeps the stored one, so the form does
	// not need to echo secrets back.
	if server.RconPassword == "" {
		server.RconPassword = existing.RconPassword
	}
	if err := h.Servers.Upsert(c.Request.Context(), server); err != nil {
		h.Logger.Error().Err(err).Msg("failed to update server")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// The service reconnects with the fresh descriptor.
	h.Runtime.LaunchServer(server)
	c.Redirect(http.StatusSeeOther, "/manage/servers")
}

func (h *handlers) deleteServer(c *gin.Context) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	h.Runtime.StopServer(c.Request.Context(), uid)
	if err := h.Servers.Delete(c.Request.Context(), uid); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.Logger.Error().Err(err).Msg("failed to delete server")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusSeeOther, "/manage/servers")
}
