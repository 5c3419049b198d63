package target

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configures the target server.
type Options struct {
	// LatencyMin and LatencyMax bound a uniform delay added to every API call.
	LatencyMin time.Duration
	LatencyMax time.Duration

	// ErrorRate is the fraction (0..1) of API calls answered with the
	// service's 503 fallback instead of being handled.
	ErrorRate float64

	// SeedUsers and SeedProducts are created at startup.
	SeedUsers    int
	SeedProducts int

	Logger *zap.Logger
}

// DefaultOptions seeds enough users and products for the default scenario
// mix, whose orders reference ids 1..100.
func DefaultOptions() Options {
	return Options{
		SeedUsers:    100,
		SeedProducts: 100,
	}
}

// Server is the in-memory API.
type Server struct {
	opts   Options
	store  *Store
	logger *zap.Logger
	router *gin.Engine
}

// services maps an API prefix to the name used in health and fallback replies.
var services = map[string]struct {
	id    string
	title string
}{
	"users":    {"user-service", "User Service"},
	"products": {"product-service", "Product Service"},
	"orders":   {"order-service", "Order Service"},
}

// NewServer builds the router and seeds the store.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LatencyMax < opts.LatencyMin {
		opts.LatencyMax = opts.LatencyMin
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:   opts,
		store:  NewStore(),
		logger: opts.Logger,
		router: gin.New(),
	}
	s.store.Seed(opts.SeedUsers, opts.SeedProducts)

	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()

	return s
}

// Store exposes the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting target server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down target server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	users := api.Group("/users", s.inject("users"))
	{
		users.GET("/health", s.health("users"))
		users.POST("", s.createUser)
		users.GET("", s.listUsers)
		users.GET("/:id", s.getUser)
	}

	products := api.Group("/products", s.inject("products"))
	{
		products.GET("/health", s.health("products"))
		products.POST("", s.createProduct)
		products.GET("", s.listProducts)
		products.GET("/:id", s.getProduct)
		products.POST("/:id/stock", s.reduceStock)
	}

	orders := api.Group("/orders", s.inject("orders"))
	{
		orders.GET("/health", s.health("orders"))
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET("/:id", s.getOrder)
		orders.PATCH("/:id/status", s.updateOrderStatus)
	}

	s.router.Any("/fallback/:service", func(c *gin.Context) {
		name := c.Param("service")
		if _, ok := services[name]; !ok {
			name = strings.TrimSuffix(name, "-service") + "s"
		}
		s.fallback(c, name)
	})
}

// inject adds configured latency and, at ErrorRate, short-circuits with the
// fallback reply.
func (s *Server) inject(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d := s.latency(); d > 0 {
			select {
			case <-time.After(d):
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if s.opts.ErrorRate > 0 && rand.Float64() < s.opts.ErrorRate {
			s.fallback(c, service)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) latency() time.Duration {
	lo, hi := s.opts.LatencyMin, s.opts.LatencyMax
	if hi <= 0 {
		return 0
	}
	if hi == lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

func (s *Server) fallback(c *gin.Context, service string) {
	svc, ok := services[service]
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "Service is currently unavailable. Please try again later.",
			"service": c.Param("service"),
		})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"message": svc.title + " is currently unavailable. Please try again later.",
		"service": svc.id,
	})
}

func (s *Server) health(service string) gin.HandlerFunc {
	msg := services[service].title + " is running!"
	return func(c *gin.Context) {
		c.String(http.StatusOK, msg)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

func (s *Server) createUser(c *gin.Context) {
	var u User
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.store.CreateUser(u)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.ListUsers())
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := s.store.GetUser(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) createProduct(c *gin.Context) {
	var p Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}

	created, err := s.store.CreateProduct(p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.ListProducts(c.Query("category")))
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.GetProduct(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) reduceStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	qty, err := strconv.Atoi(c.Query("quantity"))
	if err != nil || qty <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return
	}

	if err := s.store.ReduceStock(id, qty); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) createOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := s.store.CreateOrder(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	var userID int64
	if raw := c.Query("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be an integer"})
			return
		}
		userID = id
	}
	c.JSON(http.StatusOK, s.store.ListOrders(userID))
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.store.GetOrder(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, err := ParseOrderStatus(c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}

	o, err := s.store.UpdateOrderStatus(id, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidStatus):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
