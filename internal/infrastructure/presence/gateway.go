package presence

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"arenahub/internal/core/domain"
	"arenahub/internal/core/ports"
	"arenahub/internal/infrastructure/middleware"
	"arenahub/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// GatewayConfig configures the WebSocket entry points.
type GatewayConfig struct {
	Connection     ConnectionConfig
	AllowedOrigins []string
	AuthTimeout    time.Duration
}

// Gateway upgrades HTTP requests into registry members. Every rejection
// happens before the upgrade, so clients get a regular HTTP error envelope.
type Gateway struct {
	registry *Registry
	users    ports.UserAuthenticator
	upgrader websocket.Upgrader
	cfg      GatewayConfig
	metrics  ports.PresenceMetrics
	logger   *zap.SugaredLogger

	conns sync.WaitGroup
}

func NewGateway(
	registry *Registry,
	users ports.UserAuthenticator,
	cfg GatewayConfig,
	metrics ports.PresenceMetrics,
	logger *zap.SugaredLogger,
) *Gateway {
	g := &Gateway{
		registry: registry,
		users:    users,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) RegisterRoutes(r gin.IRoutes) {
	r.GET("/ws/streams", g.HandleStreams)
	r.GET("/ws/tournaments", g.HandleTournaments)
	r.GET("/ws/notifications", g.HandleNotifications)
}

func (g *Gateway) HandleStreams(c *gin.Context) {
	g.handleRoom(c, domain.ChannelStream, "stream_id")
}

func (g *Gateway) HandleTournaments(c *gin.Context) {
	g.handleRoom(c, domain.ChannelTournament, "tournament_id")
}

// HandleNotifications joins the caller's personal channel. The token comes
// from the "token" query parameter, browsers being unable to set headers on
// a WebSocket handshake; a bearer header is accepted too.
func (g *Gateway) HandleNotifications(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		_ = c.Error(errors.NewNoTokenError())
		c.Abort()
		return
	}

	ctx, cancel := g.authContext(c.Request.Context())
	user, err := g.users.AuthenticateUser(ctx, token)
	cancel()
	if err != nil {
		_ = c.Error(middleware.ToAppError(err))
		c.Abort()
		return
	}

	g.serve(c, domain.ChannelKey{Kind: domain.ChannelNotification, ID: string(user.ID)})
}

func (g *Gateway) handleRoom(c *gin.Context, kind domain.ChannelKind, param string) {
	id := strings.TrimSpace(c.Query(param))
	if id == "" {
		_ = c.Error(errors.NewValidationError(param + " is required"))
		c.Abort()
		return
	}
	g.serve(c, domain.ChannelKey{Kind: kind, ID: id})
}

// serve runs the connection until the peer disconnects or the registry
// closes. It blocks the handler goroutine for the life of the socket.
func (g *Gateway) serve(c *gin.Context, key domain.ChannelKey) {
	ws, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		g.logger.Debugw("websocket upgrade failed", "channel", key.String(), "error", err)
		c.Abort()
		return
	}

	conn := newConnection(ws, g.cfg.Connection, g.logger)
	if err := g.registry.Join(key, conn); err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"),
			time.Now().Add(time.Second))
		_ = ws.Close()
		return
	}

	g.conns.Add(1)
	defer g.conns.Done()

	g.metrics.ConnectionOpened(key.Kind)
	g.logger.Debugw("presence member joined", "channel", key.String(), "member", conn.ID())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		conn.writePump()
	}()

	conn.readPump()

	g.registry.Leave(key, conn)
	conn.Close()
	<-writerDone

	g.metrics.ConnectionClosed(key.Kind)
	g.logger.Debugw("presence member left", "channel", key.String(), "member", conn.ID())
}

// Wait blocks until every served connection has finished.
func (g *Gateway) Wait() {
	g.conns.Wait()
}

func (g *Gateway) authContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.AuthTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.cfg.AuthTimeout)
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients), a "*" entry, or an exact match.
func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	normalized := u.Scheme + "://" + u.Host
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), normalized) {
			return true
		}
	}
	return false
}
