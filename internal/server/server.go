package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"seedvault/internal/api"
	"seedvault/internal/observability/metrics"
)

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Addr        string
	TLS         TLSConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Security    SecurityConfig
	Logger      *slog.Logger
	AuditLogger *slog.Logger
	Metrics     *metrics.Recorder
}

type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	auditLogger *slog.Logger
	metrics     *metrics.Recorder
	rateLimiter *rateLimiter
	tlsCertFile string
	tlsKeyFile  string
}

func New(handler *api.Handler, cfg Config) (*Server, error) {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handler.Health)
	mux.HandleFunc("/healthz", handler.Health)
	mux.Handle("/metrics", recorder.Handler())

	mux.HandleFunc("/api/auth/register", handler.Register)
	mux.HandleFunc("/api/auth/login", handler.Login)
	mux.HandleFunc("/api/auth/session", handler.Session)
	mux.HandleFunc("/api/auth/profile", handler.Profile)
	mux.HandleFunc("/api/auth/rotate-passkey", handler.RotatePasskey)
	mux.HandleFunc("/api/auth/request-email-verification", handler.NotImplemented)
	mux.HandleFunc("/api/auth/verify-email", handler.NotImplemented)
	mux.HandleFunc("/api/auth/request-password-reset", handler.NotImplemented)
	mux.HandleFunc("/api/auth/reset-password", handler.NotImplemented)
	mux.HandleFunc("/api/user/rss-token", handler.RSSToken)

	mux.HandleFunc("/api/categories", handler.Categories)
	mux.HandleFunc("/api/category/", handler.CategoryByID)
	mux.HandleFunc("/api/torrent/list", handler.TorrentList)
	mux.HandleFunc("/api/torrent/upload", handler.TorrentUpload)
	mux.HandleFunc("/api/torrent/", handler.TorrentByID)
	mux.HandleFunc("/api/requests", handler.Requests)
	mux.HandleFunc("/api/requests/", handler.RequestByID)
	mux.HandleFunc("/api/announcements", handler.Announcements)
	mux.HandleFunc("/api/announcements/", handler.AnnouncementByID)
	mux.HandleFunc("/api/wiki", handler.WikiIndex)
	mux.HandleFunc("/api/wiki/", handler.WikiBySlug)
	mux.HandleFunc("/api/notifications", handler.Notifications)
	mux.HandleFunc("/api/notifications/", handler.NotificationAction)
	mux.HandleFunc("/api/bookmarks", handler.Bookmarks)
	mux.HandleFunc("/api/bookmarks/", handler.BookmarkByTorrent)

	mux.HandleFunc("/api/admin/users", handler.AdminUsers)
	mux.HandleFunc("/api/admin/user/", handler.AdminUserAction)
	mux.HandleFunc("/api/admin/torrent/pending", handler.AdminTorrentsPending)
	mux.HandleFunc("/api/admin/torrent/", handler.AdminTorrentAction)
	mux.HandleFunc("/api/admin/peerban", handler.AdminPeerBans)
	mux.HandleFunc("/api/admin/peerban/", handler.AdminPeerBanByID)
	mux.HandleFunc("/api/admin/category", handler.AdminCategories)
	mux.HandleFunc("/api/admin/category/", handler.AdminCategoryByID)
	mux.HandleFunc("/api/admin/request/", handler.AdminRequestAction)
	mux.HandleFunc("/api/admin/announcement", handler.AdminAnnouncements)
	mux.HandleFunc("/api/admin/announcement/", handler.AdminAnnouncementByID)
	mux.HandleFunc("/api/admin/wiki", handler.AdminWiki)
	mux.HandleFunc("/api/admin/wiki/", handler.AdminWikiByID)
	mux.HandleFunc("/api/admin/siteconfig", handler.AdminSiteConfig)
	mux.HandleFunc("/api/admin/smtp", handler.AdminSMTP)
	mux.HandleFunc("/api/admin/smtp/test", handler.AdminSMTPTest)

	corsPolicy, err := newCORSPolicy(cfg.CORS)
	if err != nil {
		return nil, err
	}

	rl := newRateLimiter(cfg.RateLimit)
	handlerChain := http.Handler(mux)
	handlerChain = authMiddleware(handler, handlerChain)
	handlerChain = rateLimitMiddleware(rl, cfg.Logger, handlerChain)
	handlerChain = securityHeadersMiddleware(cfg.Security, handlerChain)
	handlerChain = corsMiddleware(corsPolicy, cfg.Logger, handlerChain)
	handlerChain = metricsMiddleware(recorder, handlerChain)
	handlerChain = auditMiddleware(cfg.AuditLogger, handlerChain)
	handlerChain = loggingMiddleware(cfg.Logger, handlerChain)
	handlerChain = requestIDMiddleware(cfg.Logger, handlerChain)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlerChain,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := &Server{
		httpServer:  httpServer,
		logger:      cfg.Logger,
		auditLogger: cfg.AuditLogger,
		metrics:     recorder,
		rateLimiter: rl,
		tlsCertFile: strings.TrimSpace(cfg.TLS.CertFile),
		tlsKeyFile:  strings.TrimSpace(cfg.TLS.KeyFile),
	}

	if srv.tlsCertFile != "" && srv.tlsKeyFile != "" {
		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return srv, nil
}

func (s *Server) Start() error {
	if s.httpServer == nil {
		return fmt.Errorf("http server is not configured")
	}

	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		return s.httpServer.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile)
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)
		duration := time.Since(start)
		loggerWithRequestContext(r.Context(), logger).Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", duration.Milliseconds(),
			"remote_ip", extractClientIP(r))
	})
}

func metricsMiddleware(recorder *metrics.Recorder, next http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(sr, r)
		recorder.ObserveRequest(r.Method, r.URL.Path, sr.status, time.Since(start))
	})
}

func rateLimitMiddleware(rl *rateLimiter, logger *slog.Logger, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.AllowRequest() {
			writeMiddlewareError(w, http.StatusTooManyRequests, "global rate limit exceeded")
			return
		}
		if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
			ip := extractClientIP(r)
			allowed, retryAfter, err := rl.AllowLogin(ip)
			if err != nil {
				if logger != nil {
					logger.Error("rate limiter failure", "error", err)
				}
				writeMiddlewareError(w, http.StatusServiceUnavailable, "rate limit failure")
				return
			}
			if !allowed {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
				}
				writeMiddlewareError(w, http.StatusTooManyRequests, "too many login attempts")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func auditMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := newStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(sr, r)
		if !shouldAudit(r) {
			return
		}
		duration := time.Since(start)
		user, ok := api.UserFromContext(r.Context())
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration_ms", duration.Milliseconds(),
			"remote_ip", extractClientIP(r),
		}
		if ok {
			fields = append(fields, "user_id", user.ID)
		}
		logger.Info("audit", fields...)
	})
}

// shouldAudit keeps the audit log focused on mutations.
func shouldAudit(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	return clientIP(r.RemoteAddr)
}

func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// publicPaths never require a session token; the session endpoint validates
// its own token so clients get a clean 401 body instead of a middleware
// rejection.
var publicPaths = map[string]struct{}{
	"/health":                              {},
	"/healthz":                             {},
	"/metrics":                             {},
	"/api/auth/register":                   {},
	"/api/auth/login":                      {},
	"/api/auth/session":                    {},
	"/api/auth/request-email-verification": {},
	"/api/auth/verify-email":               {},
	"/api/auth/request-password-reset":     {},
	"/api/auth/reset-password":             {},
}

// isPublicRead reports whether an anonymous GET may browse the path. Torrent
// downloads stay behind authentication even though the listing is public.
func isPublicRead(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	path := r.URL.Path
	if strings.HasSuffix(path, "/download") {
		return false
	}
	switch path {
	case "/api/categories", "/api/torrent/list", "/api/requests", "/api/announcements", "/api/wiki":
		return true
	}
	for _, prefix := range []string{"/api/category/", "/api/torrent/", "/api/requests/", "/api/announcements/", "/api/wiki/"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func authMiddleware(handler *api.Handler, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := publicPaths[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		token := api.ExtractToken(r)
		if token == "" {
			if isPublicRead(r) {
				next.ServeHTTP(w, r)
				return
			}
			writeMiddlewareError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		user, err := handler.AuthenticateRequest(r)
		if err != nil {
			if isPublicRead(r) {
				// A stale cookie should not block public browsing.
				next.ServeHTTP(w, r)
				return
			}
			writeMiddlewareError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := api.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
