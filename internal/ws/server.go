// Package ws is the client-facing transport: the websocket channel
// protocol, its connection hub and the REST endpoints.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/ais"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/authz"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/broadcast"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/config"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/metrics"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/subscription"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/visibility"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

type Options struct {
	Config     config.ServerConfig
	Auth       *Authenticator
	Authz      *authz.Enforcer
	Hub        *Hub
	Registry   *subscription.Registry
	Scheduler  *broadcast.Scheduler
	Store      vessel.Store
	AIS        *ais.Engine
	Policy     *visibility.Policy
	FeedSource string
	Now        func() time.Time
}

type Server struct {
	cfg        config.ServerConfig
	auth       *Authenticator
	authz      *authz.Enforcer
	hub        *Hub
	registry   *subscription.Registry
	scheduler  *broadcast.Scheduler
	store      vessel.Store
	ais        *ais.Engine
	policy     *visibility.Policy
	feedSource string
	now        func() time.Time

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
}

func NewServer(o Options) *Server {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Policy == nil {
		o.Policy = visibility.NewPolicy(true)
	}
	s := &Server{
		cfg:            o.Config,
		auth:           o.Auth,
		authz:          o.Authz,
		hub:            o.Hub,
		registry:       o.Registry,
		scheduler:      o.Scheduler,
		store:          o.Store,
		ais:            o.AIS,
		policy:         o.Policy,
		feedSource:     o.FeedSource,
		now:            o.Now,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range o.Config.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(securityHeaders)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.cfg.RESTRequestsPerMinute > 0 {
				r.Use(httprate.LimitByIP(s.cfg.RESTRequestsPerMinute, time.Minute))
			}
			r.Use(s.authenticate)
			r.Get("/me", s.handleMe)
			r.Get("/vessels/realtime", s.handleRealtime)
			r.Post("/vessels/{id}/update_from_ais", s.handleUpdateFromAIS)
		})
	})
	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

type roleKey struct{}

func withRole(ctx context.Context, rc vessel.RoleContext) context.Context {
	return context.WithValue(ctx, roleKey{}, rc)
}

func roleFrom(ctx context.Context) vessel.RoleContext {
	rc, _ := ctx.Value(roleKey{}).(vessel.RoleContext)
	return rc
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, err := s.auth.Authenticate(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required", "")
			return
		}
		next.ServeHTTP(w, r.WithContext(withRole(r.Context(), rc)))
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	rc, err := s.auth.Authenticate(r)
	if err != nil {
		metrics.WSRejected.WithLabelValues("auth").Inc()
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !s.checkOrigin(r) {
		metrics.WSRejected.WithLabelValues("origin").Inc()
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	c, err := s.hub.Add(conn, rc)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	s.reply(c, broadcast.Message{Type: broadcast.MsgConnectionResponse, Payload: ConnectionPayload{
		Data:   "Connected to real-time server",
		ConnID: c.id,
		Role:   string(rc.Role),
	}})
	go s.readPump(c)
}

// readPump handles inbound frames until the connection fails, then clears
// every subscription of the connection.
func (s *Server) readPump(c *client) {
	defer s.hub.Remove(c.id)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Str("conn_id", c.id).Msg("websocket read failed")
			}
			return
		}
		s.handleMessage(c, data)
	}
}

func (s *Server) handleMessage(c *client, data []byte) {
	if !c.limiter.Allow() {
		s.replyError(c, "", "rate limit exceeded")
		return
	}

	cmd, err := ParseCommand(data)
	if err != nil {
		s.replyError(c, "", err.Error())
		return
	}

	ctx := context.Background()
	switch cmd.Type {
	case InSubscribe:
		if err := s.authz.CanSubscribe(c.role.Role, cmd.Channel); err != nil {
			if !errors.Is(err, authz.ErrForbidden) {
				logging.Error().Err(err).Str("conn_id", c.id).Msg("channel authorization failed")
			}
			s.replyError(c, cmd.Channel, fmt.Sprintf("not allowed to subscribe to %s", cmd.Channel))
			return
		}
		added, err := s.registry.Subscribe(c.id, cmd.Channel, c.role)
		if err != nil {
			s.replyError(c, cmd.Channel, err.Error())
			return
		}
		s.reply(c, broadcast.Message{
			Type:    broadcast.MsgSubscriptionConfirmed,
			Payload: SubscriptionPayload{Channel: cmd.Channel},
		})
		if added && cmd.Channel.TimerDriven() {
			s.scheduler.PushNow(ctx, cmd.Channel, subscription.Member{ConnID: c.id, Role: c.role})
		}

	case InUnsubscribe:
		s.registry.Unsubscribe(c.id, cmd.Channel)

	case InRequestVessel:
		s.reply(c, s.scheduler.VesselPosition(ctx, c.role, cmd.VesselID))

	case InPing:
		s.reply(c, broadcast.Message{Type: broadcast.MsgPong, Payload: PongPayload{Timestamp: s.now().UnixMilli()}})
	}
}

func (s *Server) reply(c *client, msg broadcast.Message) {
	frame, err := broadcast.Encode(msg)
	if err != nil {
		logging.Error().Err(err).Str("type", string(msg.Type)).Msg("reply encode failed")
		return
	}
	if err := c.trySend(frame); errors.Is(err, ErrSlowClient) {
		logging.Info().Str("conn_id", c.id).Msg("client too slow, disconnecting")
		s.hub.Remove(c.id)
	}
}

func (s *Server) replyError(c *client, ch subscription.Channel, text string) {
	s.reply(c, broadcast.ErrorMessage(ch, text, s.now()))
}

// checkOrigin allows requests without an Origin, configured origins, and
// otherwise same-host or loopback origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
