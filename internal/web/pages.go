package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DSroD/PyCon/internal/model"
	"github.com/DSroD/PyCon/internal/store"
)

type serverView struct {
	Server model.Server
	Online bool
}

func (h *handlers) indexPage(c *gin.Context) {
	user := currentUser(c)
	servers, err := h.Servers.All(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to list servers")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	views := make([]serverView, len(servers))
	for i, server := range servers {
		views[i] = serverView{Server: server, Online: h.Status.IsOnline(server.UID)}
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"User":    user.UserView,
		"Servers": views,
	})
}

func (h *handlers) consolePage(c *gin.Context) {
	uid, err := uuid.Parse(c.Param("uid"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	server, err := h.Servers.Get(c.Request.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to load server")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.HTML(http.StatusOK, "console.html", gin.H{
		"User":   currentUser(c).UserView,
		"Server": server,
		"Online": h.Status.IsOnline(server.UID),
	})
}

func (h *handlers) serversPage(c *gin.Context) {
	servers, err := h.Servers.All(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to list servers")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.HTML(http.StatusOK, "manage_servers.html", gin.H{
		"User":    currentUser(c).UserView,
		"Servers": servers,
		"Types":   []model.ServerType{model.MinecraftServer, model.SourceServer},
	})
}

func (h *handlers) usersPage(c *gin.Context) {
	users, err := h.Users.All(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to list users")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.HTML(http.StatusOK, "manage_users.html", gin.H{
		"User":  currentUser(c).UserView,
		"Users": users,
		"Capabilities": []model.UserCapability{
			model.CapUserManagement,
			model.CapServerManagement,
		},
	})
}
