package http

import (
	"container/list"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/insight"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

// LRU cache with TTL and size-based eviction
type lruCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

func newLRUCache[T any](maxSize int, ttl time.Duration) *lruCache[T] {
	return &lruCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

func (c *lruCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *lruCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// DeletePrefix drops every entry whose key starts with prefix. Used to
// invalidate all cached views of one user after a write.
func (c *lruCache[T]) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if len(item.key) >= len(prefix) && item.key[:len(prefix)] == prefix {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
}

func (c *lruCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries
func (c *lruCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

type Server struct {
	http.Server
	budget   *services.BudgetService
	ledger   *services.LedgerService
	insight  insight.Client
	tracker  *insight.Tracker
	identity auth.Identity

	rateLimiter *rateLimiter
	metrics     *metrics
	httpLog     *log.StructuredLogger

	summaryCache  *lruCache[core.CycleSummary]
	calendarCache *lruCache[[]core.DayBalance]

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, budget *services.BudgetService, ledger *services.LedgerService, ai insight.Client, identity auth.Identity) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		budget:           budget,
		ledger:           ledger,
		insight:          ai,
		tracker:          insight.NewTracker(),
		identity:         identity,
		rateLimiter:      newRateLimiter(),
		metrics:          newMetrics(),
		httpLog:          log.NewStructuredLogger(log.New(log.Config{Component: log.ComponentHTTP})),
		summaryCache:     newLRUCache[core.CycleSummary](100, 5*time.Minute),
		calendarCache:    newLRUCache[[]core.DayBalance](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /metrics", s.metrics.handler)

	mux.HandleFunc("GET /api/cycle", s.wrap(s.handleCycleSummary))
	mux.HandleFunc("GET /api/cycles/{year}", s.wrap(s.handleCyclesForYear))
	mux.HandleFunc("GET /api/calendar", s.wrap(s.handleCalendar))
	mux.HandleFunc("GET /api/annual/{year}", s.wrap(s.handleAnnualTrend))

	mux.HandleFunc("GET /api/settings", s.wrap(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.wrap(s.handlePutSettings))
	mux.HandleFunc("GET /api/budget/{year}", s.wrap(s.handleGetBudget))
	mux.HandleFunc("PUT /api/budget/{year}", s.wrap(s.handlePutBudget))

	mux.HandleFunc("GET /api/transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/recurring", s.wrap(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.wrap(s.handleCreateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.wrap(s.handleDeleteRecurring))

	mux.HandleFunc("POST /api/insight/suggest", s.wrap(s.handleSuggestCategory))
	mux.HandleFunc("POST /api/insight/summary", s.wrap(s.handleCycleInsight))

	return s
}

// startCacheCleanup runs periodic cleanup for the response caches
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summaries := s.summaryCache.CleanExpired()
			calendars := s.calendarCache.CleanExpired()
			if summaries > 0 || calendars > 0 {
				slog.Debug("Cache cleanup completed",
					"summary_entries_removed", summaries,
					"calendar_entries_removed", calendars)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// wrap adds security headers, rate limiting, metrics, and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.httpLog.LogHTTPStart(ctx, r, requestID, clientIP)

		if isWrite(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			s.metrics.record(http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.metrics.record(rw.statusCode)
		s.httpLog.LogHTTPEnd(ctx, r, requestID, clientIP, rw.statusCode, time.Since(start).Milliseconds())
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// invalidateUser drops all cached derived views for one user.
func (s *Server) invalidateUser(userID string) {
	s.summaryCache.DeletePrefix(userID + ":")
	s.calendarCache.DeletePrefix(userID + ":")
}

// InvalidateAccount drops the cached derived views for one account. Wired to
// the ledger snapshot stream so out-of-band writes, such as recurring
// postings, refresh the summaries the API serves.
func (s *Server) InvalidateAccount(userID string) {
	s.invalidateUser(userID)
}
