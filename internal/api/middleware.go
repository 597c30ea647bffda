package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
)

// SessionLookup resolves bearer tokens to live sessions
type SessionLookup interface {
	Session(token uuid.UUID) (*session.Session, bool)
}

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// SessionMiddleware attaches the caller's session to the request context.
// Requests without an Authorization header continue anonymously; an unknown
// or malformed token is rejected.
func SessionMiddleware(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			Response.Unauthorized(c, "Authorization header must use the Bearer scheme")
			c.Abort()
			return
		}
		token, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			Response.Unauthorized(c, "Malformed session token")
			c.Abort()
			return
		}
		sess, ok := sessions.Session(token)
		if !ok {
			Response.Unauthorized(c, "Session has ended or does not exist")
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), sess))
		c.Next()
	}
}

// ErrorHandlerMiddleware renders errors attached with c.Error as problem
// documents.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()
		if err.Type == gin.ErrorTypeBind {
			handleValidationError(c, err.Err)
			return
		}
		Response.Error(c, err.Err)
	}
}

// ResponseHelpers provides methods for REST-native responses
type ResponseHelpers struct{}

// Success sends the resource directly (no wrapper)
func (h *ResponseHelpers) Success(c *gin.Context, resource interface{}) {
	c.JSON(200, resource)
}

// Created sends a 201 created response with the created resource
func (h *ResponseHelpers) Created(c *gin.Context, resource interface{}) {
	c.JSON(201, resource)
}

// NoContent sends a 204 no content response
func (h *ResponseHelpers) NoContent(c *gin.Context) {
	c.Status(204)
}

func (h *ResponseHelpers) ValidationError(c *gin.Context, field, message string) {
	problem := models.NewValidationProblem(field, message, models.ErrorCodeInvalidField)
	h.setRequestIDHeader(c)
	c.JSON(400, problem)
}

// Unauthorized sends a 401 response
func (h *ResponseHelpers) Unauthorized(c *gin.Context, detail string) {
	problem := models.NewProblemDetails(401, "Unauthorized", detail)
	problem.Code = string(models.ErrorCodeSessionRequired)
	h.setRequestIDHeader(c)
	c.JSON(401, problem)
}

// Error maps a service error onto its problem document
func (h *ResponseHelpers) Error(c *gin.Context, err error) {
	h.setRequestIDHeader(c)

	var (
		validationErr *models.ValidationError
		businessErr   *models.BusinessError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(400, models.NewValidationProblem(validationErr.Field, validationErr.Message, models.ErrorCodeInvalidField))
	case errors.As(err, &notFoundErr):
		c.JSON(404, models.NewNotFoundProblem(notFoundErr.Resource+" "+notFoundErr.ID, models.GetErrorCode(err)))
	case errors.As(err, &conflictErr):
		c.JSON(409, models.NewBusinessLogicProblem(409, "Write Conflict", conflictErr.Error(), models.ErrorCodeWriteConflict))
	case errors.As(err, &businessErr):
		switch businessErr.Code {
		case models.ErrorCodeSessionRequired:
			h.Unauthorized(c, businessErr.Message)
		case models.ErrorCodeInsufficientStock:
			problem := models.NewBusinessLogicProblem(409, "Insufficient Stock", businessErr.Message, businessErr.Code)
			problem.Errors = businessErr.Details
			c.JSON(409, problem)
		default:
			c.JSON(422, models.NewBusinessLogicProblem(422, "Unprocessable Request", businessErr.Message, businessErr.Code))
		}
	default:
		h.InternalError(c, err)
	}
}

// InternalError sends a 500 internal server error response
func (h *ResponseHelpers) InternalError(c *gin.Context, err error) {
	h.setRequestIDHeader(c)

	// internals are logged, never returned
	log.Error().
		Err(err).
		Str("request_id", getRequestID(c)).
		Str("path", c.FullPath()).
		Msg("Internal server error")

	c.JSON(500, models.NewInternalErrorProblem())
}

func (h *ResponseHelpers) setRequestIDHeader(c *gin.Context) {
	if requestID := getRequestID(c); requestID != "" {
		c.Header("X-Request-ID", requestID)
	}
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	return ""
}

func handleValidationError(c *gin.Context, err error) {
	Response.setRequestIDHeader(c)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		violations := make([]models.ValidationError, 0, len(validationErrors))
		for _, validationError := range validationErrors {
			violations = append(violations, models.ValidationError{
				Field:   strings.ToLower(validationError.Field()),
				Message: getValidationMessage(validationError),
				Code:    validationError.Tag(),
			})
		}
		c.JSON(400, models.NewMultiValidationProblem(violations))
		return
	}

	c.JSON(400, models.NewProblemDetails(400, "Bad Request", err.Error()))
}

func getValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too small"
	case "max":
		return "Value is too large"
	case "email":
		return "Invalid email format"
	case "oneof":
		return "Must be one of: " + err.Param()
	default:
		return "Invalid value"
	}
}

// Response is the shared response helper
var Response = &ResponseHelpers{}
