package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/dates"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/interfaces"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
)

// BookingHandler handles HTTP requests for availability and baskets
type BookingHandler struct {
	service interfaces.BookingService
}

// NewBookingHandler creates a new booking API handler
func NewBookingHandler(service interfaces.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// SetupRoutes sets up the HTTP routes
func (h *BookingHandler) SetupRoutes() *gin.Engine {
	r := gin.New()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(ErrorHandlerMiddleware())
	r.Use(h.corsMiddleware())

	r.GET("/health", h.healthCheck)

	api := r.Group("/api/v1")
	api.Use(SessionMiddleware(h.service))
	{
		api.GET("/bikes", h.listBikes)
		api.GET("/bikes/:id/availability", h.getStockForDate)
		api.GET("/bikes/:id/availability/range", h.getStockForRange)
		api.GET("/availability", h.getTable)

		api.POST("/sessions", h.signIn)
		api.DELETE("/sessions/current", h.signOut)

		api.GET("/basket", h.getBasket)
		api.POST("/basket", h.addToBasket)
		api.DELETE("/basket/:reservationId", h.removeFromBasket)
	}

	return r
}

func (h *BookingHandler) listBikes(c *gin.Context) {
	Response.Success(c, h.service.Catalog())
}

// getStockForDate handles GET /bikes/:id/availability?size=Medium&date=2024-06-01
func (h *BookingHandler) getStockForDate(c *gin.Context) {
	bikeID := c.Param("id")
	size, ok := sizeQuery(c)
	if !ok {
		return
	}
	date, ok := dateQuery(c, "date")
	if !ok {
		return
	}

	available, err := h.service.StockForDate(c.Request.Context(), sessionOf(c), bikeID, size, date)
	if err != nil {
		_ = c.Error(err)
		return
	}

	Response.Success(c, models.StockResponse{
		BikeID:    bikeID,
		Size:      size,
		Date:      dates.DayKey(date),
		Available: available,
	})
}

// getStockForRange handles GET /bikes/:id/availability/range?size=Small&start=...&end=...
func (h *BookingHandler) getStockForRange(c *gin.Context) {
	bikeID := c.Param("id")
	size, ok := sizeQuery(c)
	if !ok {
		return
	}
	start, ok := dateQuery(c, "start")
	if !ok {
		return
	}
	end, ok := dateQuery(c, "end")
	if !ok {
		return
	}
	start, end = dates.Ordered(start, end)

	available, err := h.service.MinStockOverRange(c.Request.Context(), sessionOf(c), bikeID, size, start, end)
	if err != nil {
		_ = c.Error(err)
		return
	}

	Response.Success(c, models.RangeStockResponse{
		BikeID:    bikeID,
		Size:      size,
		StartDate: dates.DayKey(start),
		EndDate:   dates.DayKey(end),
		Available: available,
		Bookable:  available > 0,
	})
}

func (h *BookingHandler) getTable(c *gin.Context) {
	table, err := h.service.Table(c.Request.Context(), sessionOf(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	Response.Success(c, table)
}

func (h *BookingHandler) signIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	sess, err := h.service.SignIn(c.Request.Context(), session.Credentials{
		Method:  session.LoginMethod(req.Method),
		Email:   req.Email,
		Subject: req.Subject,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	log.Info().
		Str("request_id", getRequestID(c)).
		Str("user_id", sess.UserID).
		Str("method", string(sess.Method)).
		Msg("Session started")

	Response.Created(c, models.SessionResponse{
		Token:     sess.Token.String(),
		UserID:    sess.UserID,
		Method:    string(sess.Method),
		StartedAt: sess.StartedAt,
	})
}

func (h *BookingHandler) signOut(c *gin.Context) {
	sess := sessionOf(c)
	if sess == nil {
		Response.Unauthorized(c, "No session to end")
		return
	}
	if err := h.service.SignOut(c.Request.Context(), sess.Token); err != nil {
		_ = c.Error(err)
		return
	}
	Response.NoContent(c)
}

func (h *BookingHandler) getBasket(c *gin.Context) {
	sess := sessionOf(c)
	items, err := h.service.Basket(c.Request.Context(), sess)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []models.BasketEntry{}
	}
	Response.Success(c, models.BasketResponse{UserID: sess.UserID, Items: items})
}

func (h *BookingHandler) addToBasket(c *gin.Context) {
	var req models.BasketItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	size, err := models.ParseSize(req.Size)
	if err != nil {
		Response.ValidationError(c, "size", err.Error())
		return
	}
	start, err := dates.ParseDayKey(req.StartDate)
	if err != nil {
		Response.ValidationError(c, "start_date", "must be a YYYY-MM-DD date")
		return
	}
	end, err := dates.ParseDayKey(req.EndDate)
	if err != nil {
		Response.ValidationError(c, "end_date", "must be a YYYY-MM-DD date")
		return
	}

	added, err := h.service.AddToBasket(c.Request.Context(), sessionOf(c), models.BasketEntry{
		BikeID:    req.BikeID,
		Size:      size,
		Quantity:  req.Quantity,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Location", "/api/v1/basket/"+added.ReservationID)
	Response.Created(c, added)
}

func (h *BookingHandler) removeFromBasket(c *gin.Context) {
	if err := h.service.RemoveFromBasket(c.Request.Context(), sessionOf(c), c.Param("reservationId")); err != nil {
		_ = c.Error(err)
		return
	}
	Response.NoContent(c)
}

// healthCheck handles health check requests
func (h *BookingHandler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "trailbuddy-booking",
		"bikes":   len(h.service.Catalog()),
		"time":    time.Now().UTC(),
	})
}

// corsMiddleware handles CORS headers
func (h *BookingHandler) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func sessionOf(c *gin.Context) *session.Session {
	sess, _ := session.FromContext(c.Request.Context())
	return sess
}

func sizeQuery(c *gin.Context) (models.Size, bool) {
	size, err := models.ParseSize(c.Query("size"))
	if err != nil {
		Response.ValidationError(c, "size", err.Error())
		return "", false
	}
	return size, true
}

func dateQuery(c *gin.Context, name string) (time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		problem := models.NewValidationProblem(name, "This field is required", models.ErrorCodeMissingField)
		c.JSON(400, problem)
		return time.Time{}, false
	}
	t, err := dates.ParseDayKey(value)
	if err != nil {
		Response.ValidationError(c, name, "must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return t, true
}
