package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"chitieu/internal/core"
	"chitieu/internal/feed"
	applog "chitieu/internal/log"
	"chitieu/internal/middleware/ratelimit"
	"chitieu/internal/middleware/security"
	"chitieu/internal/middleware/trace"
	"chitieu/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the services the API exposes. All are required.
type Dependencies struct {
	Reports      *services.ReportService
	Transactions *services.TransactionService
	Budgets      *services.BudgetService
	Categories   *services.CategoryService
	Hub          *feed.Hub
	Store        Pinger
}

type Options struct {
	Addr               string
	Logger             *applog.Logger
	Location           *time.Location
	RateLimitPerMinute int
	TrustedProxies     []string
	// StreamHeartbeat is the interval of keep-alive comments on report
	// streams.
	StreamHeartbeat time.Duration
	// RequestTimeout bounds the non-streaming handlers.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server

	reports      *services.ReportService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	categories   *services.CategoryService
	hub          *feed.Hub
	store        Pinger

	location       *time.Location
	heartbeat      time.Duration
	requestTimeout time.Duration

	logger      *applog.Logger
	events      *applog.StructuredLogger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	trace       *trace.Middleware

	started       time.Time
	writes        int64
	activeStreams int64
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(deps Dependencies, opts Options) (*Server, error) {
	if deps.Reports == nil || deps.Transactions == nil || deps.Budgets == nil ||
		deps.Categories == nil || deps.Hub == nil || deps.Store == nil {
		return nil, errors.New("http server: missing dependency")
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.StreamHeartbeat <= 0 {
		opts.StreamHeartbeat = 25 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		reports:        deps.Reports,
		transactions:   deps.Transactions,
		budgets:        deps.Budgets,
		categories:     deps.Categories,
		hub:            deps.Hub,
		store:          deps.Store,
		location:       opts.Location,
		heartbeat:      opts.StreamHeartbeat,
		requestTimeout: opts.RequestTimeout,
		logger:         logger,
		events:         applog.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		detector: detector,
		started:  time.Now(),
	}
	s.trace = trace.NewMiddleware(opts.Logger, detector.ClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/months/{month}/report", s.handleMonthReport)
	mux.HandleFunc("GET /api/months/{month}/days", s.handleMonthDays)
	mux.HandleFunc("GET /api/months/{month}/chart", s.handleMonthChart)
	mux.Handle("GET /api/months/{month}/stream",
		applog.ComponentMiddleware(applog.ComponentFeed)(http.HandlerFunc(s.handleMonthStream)))

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets/{month}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{month}/total", s.handleSetBudgetTotal)
	mux.HandleFunc("DELETE /api/budgets/{month}/total", s.handleDeleteBudgetTotal)
	mux.HandleFunc("PUT /api/budgets/{month}/categories/{categoryId}", s.handleSetBudgetCategory)
	mux.HandleFunc("DELETE /api/budgets/{month}/categories/{categoryId}", s.handleDeleteBudgetCategory)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("POST /api/categories/sync-defaults", s.handleSyncDefaultCategories)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})

	limited := s.rateLimiter.Middleware(s.rateLimitKey, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	handler := s.trace.Middleware(
		s.detector.Middleware(
			headers.Middleware(
				limited(mux))))

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// no WriteTimeout: report streams stay open
	}
	return s, nil
}

// rateLimitKey buckets writes by user and falls back to the client IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id, err := UserID(r); err == nil {
		return "user:" + id
	}
	return "ip:" + s.detector.ClientIP(r)
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
// Open report streams end when their request contexts are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withTimeout derives the context of a non-streaming handler.
func (s *Server) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

// fail writes the error response for err. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.StatusCode() >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, op, false,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")))
	}
	resp.Write(w)
}

// identify resolves the caller, writing the error response when missing.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := UserID(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return "", false
	}
	return userID, true
}

// identifyMonth resolves the caller and the {month} path value.
func (s *Server) identifyMonth(w http.ResponseWriter, r *http.Request) (string, core.MonthKey, bool) {
	userID, ok := s.identify(w, r)
	if !ok {
		return "", core.MonthKey{}, false
	}
	month, err := MonthParam(r)
	if err != nil {
		ErrorFor(err).Write(w)
		return "", core.MonthKey{}, false
	}
	return userID, month, true
}

func (s *Server) countWrite() {
	atomic.AddInt64(&s.writes, 1)
}
