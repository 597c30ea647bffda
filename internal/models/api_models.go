package models

import (
	"time"
)

const (
	ProblemTypeValidationError = "validation-error"
	ProblemTypeBusinessError   = "business-logic-error"
	ProblemTypeNotFound        = "not-found"
	ProblemTypeUnauthorized    = "unauthorized"
	ProblemTypeInternalError   = "internal-error"
)

// API Request Models

// SignInRequest starts a session. Email and Google identities are asserted by
// the identity provider in front of this service.
type SignInRequest struct {
	Method  string `json:"method" binding:"required,oneof=anonymous email google"`
	Email   string `json:"email,omitempty" binding:"omitempty,email"`
	Subject string `json:"subject,omitempty"`
}

// BasketItemRequest asks for a bike size over an inclusive date range
type BasketItemRequest struct {
	BikeID    string `json:"bike_id" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// API Response Models

// SessionResponse is returned on sign-in
type SessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Method    string    `json:"method"`
	StartedAt time.Time `json:"started_at"`
}

// StockResponse answers a single-day stock query
type StockResponse struct {
	BikeID    string `json:"bike_id"`
	Size      Size   `json:"size"`
	Date      string `json:"date"`
	Available int    `json:"available"`
}

// RangeStockResponse answers a multi-day stock query
type RangeStockResponse struct {
	BikeID    string `json:"bike_id"`
	Size      Size   `json:"size"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available int    `json:"available"`
	Bookable  bool   `json:"bookable"`
}

// AvailabilityTableResponse is the published table of a view
type AvailabilityTableResponse struct {
	StartDate  string                             `json:"start_date"`
	Days       int                                `json:"days"`
	ComputedAt time.Time                          `json:"computed_at"`
	Stock      map[string]map[string]map[Size]int `json:"stock"`
	Oversold   []OversoldCell                     `json:"oversold,omitempty"`
}

// OversoldCell reports a cell whose confirmed reservations exceed capacity
type OversoldCell struct {
	Date   string `json:"date"`
	BikeID string `json:"bike_id"`
	Size   Size   `json:"size"`
	Excess int    `json:"excess"`
}

// BasketResponse lists the caller's basket
type BasketResponse struct {
	UserID string        `json:"user_id"`
	Items  []BasketEntry `json:"items"`
}

// ProblemDetails is an RFC 7807 error document
type ProblemDetails struct {
	Type     string      `json:"type"`
	Title    string      `json:"title"`
	Status   int         `json:"status"`
	Detail   string      `json:"detail,omitempty"`
	Instance string      `json:"instance,omitempty"`
	Field    string      `json:"field,omitempty"`
	Code     string      `json:"code,omitempty"`
	Errors   interface{} `json:"errors,omitempty"`
}

func NewProblemDetails(status int, title, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   getProblemType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// NewValidationProblem creates a validation error problem
func NewValidationProblem(field, message string, code ErrorCode) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeValidationError,
		Title:  "Validation Failed",
		Status: 400,
		Detail: message,
		Field:  field,
		Code:   string(code),
	}
}

// NewMultiValidationProblem creates a multi-field validation error problem
func NewMultiValidationProblem(violations []ValidationError) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeValidationError,
		Title:  "Validation Failed",
		Status: 400,
		Detail: "Multiple validation errors occurred",
		Errors: violations,
	}
}

// NewBusinessLogicProblem creates a business logic error problem
func NewBusinessLogicProblem(status int, title, detail string, code ErrorCode) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeBusinessError,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   string(code),
	}
}

// NewNotFoundProblem creates a not found error problem
func NewNotFoundProblem(resource string, code ErrorCode) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeNotFound,
		Title:  "Resource Not Found",
		Status: 404,
		Detail: resource + " not found",
		Code:   string(code),
	}
}

// NewInternalErrorProblem creates an internal server error problem
func NewInternalErrorProblem() *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeInternalError,
		Title:  "Internal Server Error",
		Status: 500,
		Detail: "An unexpected error occurred",
	}
}

func getProblemType(status int) string {
	switch status {
	case 400:
		return ProblemTypeValidationError
	case 401:
		return ProblemTypeUnauthorized
	case 404:
		return ProblemTypeNotFound
	case 409, 422:
		return ProblemTypeBusinessError
	default:
		return ProblemTypeInternalError
	}
}
