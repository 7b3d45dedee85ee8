package http

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/internal/infrastructure/middleware"
	"arenahub/pkg/errors"

	"github.com/gin-gonic/gin"
)

const maxBroadcastBody = 64 * 1024

// RealtimeHandler lets staff push payloads into presence channels.
type RealtimeHandler struct {
	presence   ports.PresenceBroadcaster
	admins     ports.AdminAuthenticator
	authConfig middleware.AuthConfig
}

func NewRealtimeHandler(presence ports.PresenceBroadcaster, admins ports.AdminAuthenticator, authConfig middleware.AuthConfig) *RealtimeHandler {
	return &RealtimeHandler{
		presence:   presence,
		admins:     admins,
		authConfig: authConfig,
	}
}

func (h *RealtimeHandler) SetupRoutes(router gin.IRouter) {
	api := router.Group("/admin/realtime")
	{
		api.GET("/stats", middleware.AdminAuth(h.admins, h.authConfig, domain.CapModerate), h.Stats)
		api.POST("/streams/:id", middleware.AdminAuth(h.admins, h.authConfig, domain.CapModerate), h.broadcastTo(domain.ChannelStream))
		api.POST("/tournaments/:id", middleware.AdminAuth(h.admins, h.authConfig, domain.CapManagePlatform), h.broadcastTo(domain.ChannelTournament))
		api.POST("/notifications/:id", middleware.AdminAuth(h.admins, h.authConfig, domain.CapManagePlatform), h.broadcastTo(domain.ChannelNotification))
	}
}

type BroadcastResponse struct {
	Channel     string `json:"channel"`
	Delivered   int    `json:"delivered"`
	RelayFailed bool   `json:"relay_failed,omitempty"`
}

// broadcastTo pushes the raw JSON body to one channel. A relay failure is
// reported in the response; local members have already been served.
func (h *RealtimeHandler) broadcastTo(kind domain.ChannelKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := domain.ChannelKey{Kind: kind, ID: strings.TrimSpace(c.Param("id"))}
		if key.ID == "" {
			fail(c, errors.NewValidationError("id is required"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBroadcastBody+1))
		if err != nil || len(body) > maxBroadcastBody {
			fail(c, errors.NewValidationError("payload must be a JSON document of at most 64KiB"))
			return
		}

		delivered, err := h.presence.Broadcast(c.Request.Context(), key, body)
		switch {
		case err == nil:
		case stderrors.Is(err, domain.ErrInvalidPayload):
			fail(c, errors.NewValidationError(err.Error()))
			return
		case stderrors.Is(err, domain.ErrRelayUnavailable):
			respond(c, http.StatusOK, "", BroadcastResponse{Channel: key.String(), Delivered: delivered, RelayFailed: true})
			return
		default:
			fail(c, err)
			return
		}

		respond(c, http.StatusOK, "", BroadcastResponse{Channel: key.String(), Delivered: delivered})
	}
}

func (h *RealtimeHandler) Stats(c *gin.Context) {
	respond(c, http.StatusOK, "", h.presence.Stats())
}
