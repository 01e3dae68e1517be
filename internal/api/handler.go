package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"furnish-service/internal/matcher"
	"furnish-service/internal/service"
	"furnish-service/internal/store"
	"furnish-service/internal/util"
)

// ReadinessCheck is one dependency probed by /ready
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	designService *service.DesignService
	checks        []ReadinessCheck
}

// NewHandler creates a new HTTP handler
func NewHandler(designService *service.DesignService, checks ...ReadinessCheck) *Handler {
	return &Handler{
		designService: designService,
		checks:        checks,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/match", h.matchRoom)
		v1.POST("/distribute", h.distribute)
		v1.POST("/designs", h.createDesign)
		v1.POST("/designs/async", h.requestDesign)
		v1.GET("/designs/:id", h.getDesign)
		v1.GET("/products/search", h.searchProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/alternatives", h.alternatives)
		v1.GET("/tiers", h.tiers)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failing := gin.H{}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failing[check.Name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"failing": failing,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// matchRoom handles single room furnishing
func (h *Handler) matchRoom(c *gin.Context) {
	var req service.MatchRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.designService.MatchRoom(c.Request.Context(), &req)
	if err != nil {
		writeError(c, "Failed to match room", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// distribute handles budget splitting across rooms
func (h *Handler) distribute(c *gin.Context) {
	var req service.DistributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	shares, err := h.designService.Distribute(c.Request.Context(), &req)
	if err != nil {
		writeError(c, "Failed to distribute budget", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocations": shares})
}

// createDesign handles synchronous multi-room furnishing
func (h *Handler) createDesign(c *gin.Context) {
	req, ok := bindFurnish(c)
	if !ok {
		return
	}

	view, err := h.designService.FurnishRooms(c.Request.Context(), req)
	if err != nil {
		writeError(c, "Failed to furnish design", err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// requestDesign handles async multi-room furnishing
func (h *Handler) requestDesign(c *gin.Context) {
	req, ok := bindFurnish(c)
	if !ok {
		return
	}

	design, err := h.designService.RequestDesign(c.Request.Context(), req)
	if err != nil {
		writeError(c, "Failed to request design", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"design_id": design.ID,
		"status":    design.Status,
	})
}

// getDesign handles get design by ID
func (h *Handler) getDesign(c *gin.Context) {
	view, err := h.designService.GetDesign(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Design not found", err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// searchProducts handles catalog browsing
func (h *Handler) searchProducts(c *gin.Context) {
	req := service.SearchRequest{
		Category: c.Query("category"),
		RoomType: c.Query("room_type"),
		Style:    c.Query("style"),
		Source:   c.Query("source"),
	}

	var err error
	if req.MinPrice, err = floatQuery(c, "min_price"); err != nil {
		badRequest(c, err)
		return
	}
	if req.MaxPrice, err = floatQuery(c, "max_price"); err != nil {
		badRequest(c, err)
		return
	}
	if req.Limit, err = intQuery(c, "limit"); err != nil {
		badRequest(c, err)
		return
	}

	products, err := h.designService.SearchProducts(c.Request.Context(), &req)
	if err != nil {
		writeError(c, "Failed to search products", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.designService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "Product not found", err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// alternatives handles swap candidate lookups
func (h *Handler) alternatives(c *gin.Context) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}

	alts, err := h.designService.Alternatives(c.Request.Context(), c.Query("slot"), c.Query("room_type"), limit)
	if err != nil {
		writeError(c, "Failed to find alternatives", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slot":         c.Query("slot"),
		"alternatives": alts,
	})
}

// tiers lists the budget tiers
func (h *Handler) tiers(c *gin.Context) {
	area, err := floatQuery(c, "area_sqm")
	if err != nil {
		badRequest(c, err)
		return
	}

	var areaSqm float64
	if area != nil {
		areaSqm = *area
	}
	c.JSON(http.StatusOK, gin.H{"tiers": h.designService.Tiers(areaSqm)})
}

func bindFurnish(c *gin.Context) (*service.FurnishRequest, bool) {
	var req service.FurnishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return nil, false
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	return &req, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}

// statusFor maps service errors onto HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, matcher.ErrUnknownRoomType):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, service.ErrNothingMatched):
		return http.StatusUnprocessableEntity
	case service.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	body := gin.H{
		"error":   msg,
		"details": err.Error(),
	}
	if status == http.StatusServiceUnavailable {
		body["retryable"] = true
	}
	c.JSON(status, body)
}

func floatQuery(c *gin.Context, key string) (*float64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New(key + " must be a number")
	}
	return &v, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return v, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
