package httpapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shopbot/internal/bot"
	"shopbot/internal/domain"
	"shopbot/internal/service"
	"shopbot/internal/transport"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "X-Webhook-Secret"

type Server struct {
	engine  *gin.Engine
	bot     *bot.Bot
	catalog *service.CatalogService
	orders  *service.OrderService
	log     *slog.Logger
	secret  string
}

// NewServer builds the gin engine. A non-empty secret is required in
// SecretHeader on the event webhook and on order reads.
func NewServer(b *bot.Bot, catalog *service.CatalogService, orders *service.OrderService, log *slog.Logger, secret string) *Server {
	r := gin.New()
	r.Use(requestLogger(log), gin.Recovery())
	s := &Server{engine: r, bot: b, catalog: catalog, orders: orders, log: log, secret: secret}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/events", requireSecret(s.secret), s.handleEvent)

		categories := v1.Group("/categories")
		categories.GET("", s.listCategories)
		categories.GET(":id/products", s.listCategoryProducts)

		v1.GET("/products/:id", s.getProduct)
		v1.GET("/orders/:id", requireSecret(s.secret), s.getOrder)
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

func requireSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type eventResponse struct {
	Replies []transport.Outbound `json:"replies"`
}

// @Summary Deliver a chat event
// @Description Handles one inbound chat event and returns the replies for its sender.
// @Tags events
// @Accept json
// @Produce json
// @Param input body transport.Inbound true "Event"
// @Success 200 {object} eventResponse
// @Param X-Webhook-Secret header string false "Shared webhook secret"
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /events [post]
func (s *Server) handleEvent(c *gin.Context) {
	var in transport.Inbound
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !in.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event kind"})
		return
	}
	replies := s.bot.Handle(c.Request.Context(), in)
	c.JSON(http.StatusOK, eventResponse{Replies: replies})
}

// @Summary List active categories
// @Tags catalog
// @Produce json
// @Success 200 {array} domain.Category
// @Router /categories [get]
func (s *Server) listCategories(c *gin.Context) {
	list, err := s.catalog.ListCategories(c, true)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List active products of a category
// @Tags catalog
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {array} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /categories/{id}/products [get]
func (s *Server) listCategoryProducts(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := s.catalog.ListCategoryProducts(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type productResponse struct {
	domain.Product
	Variants []domain.Variant `json:"variants"`
}

// @Summary Get product with its variants
// @Tags catalog
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} productResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.catalog.GetProduct(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	variants, err := s.catalog.ListVariants(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, productResponse{Product: *p, Variants: variants})
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Param X-Webhook-Secret header string false "Shared webhook secret"
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.orders.Get(c, c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSequence), errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrEmptyCart), errors.Is(err, domain.ErrBelowMinimum):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
