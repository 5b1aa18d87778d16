package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"tictactoe-online/internal/config"
	"tictactoe-online/internal/room"
	"tictactoe-online/internal/store"
	"tictactoe-online/internal/ws"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg)

	snapshots := newSnapshotStore(cfg)

	hub := ws.NewHub()
	go hub.Run()

	registry := store.NewRegistry(cfg.RoomCacheTimeout, cfg.AllRoomsCacheTimeout)
	svc := room.NewService(cfg, hub, registry, snapshots)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go svc.RunSweeper(ctx)

	srv := &server{
		cfg:            cfg,
		hub:            hub,
		svc:            svc,
		allowedOrigins: parseAllowedOrigins(cfg.AllowedWSOrigins),
		limiters:       newIPLimiters(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r.Header.Get("Origin"), srv.allowedOrigins)
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Get("/ws", srv.serveWS)
	router.Get("/healthz", srv.serveHealth)

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket writes manage their own deadlines
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if closer, ok := snapshots.(*store.RedisStore); ok && closer != nil {
		closer.Close()
	}
	log.Info().Msg("server stopped")
}

type server struct {
	cfg            *config.Config
	hub            *ws.Hub
	svc            *room.Service
	upgrader       websocket.Upgrader
	allowedOrigins []string
	limiters       *ipLimiters
}

// serveWS upgrades the connection and starts the per-connection pumps.
func (s *server) serveWS(w http.ResponseWriter, r *http.Request) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if !s.limiters.allow(ip) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	connectionID := uuid.NewString()
	client := ws.NewClient(s.hub, conn, connectionID)
	client.SetOnDisconnect(func(c *ws.Client) {
		s.svc.HandleDisconnect(c.ConnectionID)
	})
	s.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(func(c *ws.Client, msg *ws.Message) {
		s.svc.HandleMessage(c.ConnectionID, msg)
	})

	log.Debug().Str("conn", connectionID).Str("remote", r.RemoteAddr).Msg("connection established")
}

func (s *server) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"rooms":   s.svc.Registry().Count(),
		"clients": s.hub.ClientCount(),
	})
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if cfg.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// newSnapshotStore picks Redis when configured, otherwise an
// in-memory mirror. The mirror is never authoritative, so a failed
// Redis connection degrades rather than aborting startup.
func newSnapshotStore(cfg *config.Config) store.Store {
	if cfg.RedisAddr == "" {
		log.Info().Msg("no redis configured, using in-memory snapshot store")
		return store.NewMemoryStore()
	}
	rs, err := store.NewRedisStore(cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).
			Msg("redis unavailable, falling back to in-memory snapshot store")
		return store.NewMemoryStore()
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis snapshot store connected")
	return rs
}

// parseAllowedOrigins splits the comma-separated origin allow-list.
func parseAllowedOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// isOriginAllowed checks a request Origin against the allow-list. An
// empty list allows everything, which suits local development. Entries
// match the full origin or just its host; "*" matches any.
func isOriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if origin == "" {
		// Non-browser clients send no Origin header.
		return true
	}
	lower := strings.ToLower(origin)
	host := lower
	if u, err := url.Parse(lower); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	for _, a := range allowed {
		if a == "*" || a == lower || a == host {
			return true
		}
	}
	return false
}

// ipLimiters keeps one token bucket per client IP for the upgrade
// endpoint.
type ipLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
