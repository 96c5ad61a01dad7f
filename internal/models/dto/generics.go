// Package dto contains Data Transfer Objects for API responses
package dto

import (
	"time"

	"github.com/gin-gonic/gin"
)

// BaseResponse holds the fields shared by every response
type BaseResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// SuccessResponse wraps a payload
type SuccessResponse struct {
	BaseResponse
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is returned on any failure
type ErrorResponse struct {
	BaseResponse
	Error   string      `json:"error" example:"VALIDATION"`
	Code    int         `json:"code" example:"400"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty" example:"end_date"`
	Details interface{} `json:"details,omitempty"`
}

// PaginatedResponse wraps one page of a list
type PaginatedResponse struct {
	BaseResponse
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
	Message    string      `json:"message,omitempty"`
}

// Pagination describes the page returned
type Pagination struct {
	CurrentPage  int   `json:"current_page" example:"1"`
	PerPage      int   `json:"per_page" example:"50"`
	TotalPages   int   `json:"total_pages" example:"5"`
	TotalRecords int64 `json:"total_records" example:"230"`
	HasNext      bool  `json:"has_next" example:"true"`
	HasPrev      bool  `json:"has_prev" example:"false"`
}

// NewPagination computes the page counters
func NewPagination(page, perPage int, total int64) Pagination {
	if perPage < 1 {
		perPage = 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	return Pagination{
		CurrentPage:  page,
		PerPage:      perPage,
		TotalPages:   pages,
		TotalRecords: total,
		HasNext:      page < pages,
		HasPrev:      page > 1,
	}
}

// HealthResponse is the healthcheck body
type HealthResponse struct {
	BaseResponse
	Status   string            `json:"status" example:"OK"`
	Service  string            `json:"service" example:"tprmgrc-api"`
	Version  string            `json:"version" example:"1.0.0"`
	Uptime   string            `json:"uptime,omitempty" example:"1h30m45s"`
	Checks   map[string]string `json:"checks,omitempty"`
	Handlers []string          `json:"handlers,omitempty"`
}

// AuthErrorResponse is returned when the bearer token is missing or bad
type AuthErrorResponse struct {
	BaseResponse
	Error   string `json:"error" example:"unauthorized"`
	Code    int    `json:"code" example:"401"`
	Message string `json:"message" example:"Invalid token"`
}

// RateLimitErrorResponse is returned when a client exceeds its quota
type RateLimitErrorResponse struct {
	BaseResponse
	Error      string    `json:"error" example:"rate_limit_exceeded"`
	Code       int       `json:"code" example:"429"`
	Message    string    `json:"message" example:"Too many requests"`
	RetryAfter string    `json:"retry_after" example:"60s"`
	Limit      int       `json:"limit" example:"120"`
	Remaining  int       `json:"remaining" example:"0"`
	ResetTime  time.Time `json:"reset_time" example:"2024-01-01T12:01:00Z"`
}

func base(c *gin.Context, success bool) BaseResponse {
	return BaseResponse{
		Success:   success,
		Timestamp: time.Now().UTC(),
		RequestID: c.GetString("request_id"),
	}
}

// NewSuccessResponse wraps data
func NewSuccessResponse(c *gin.Context, data interface{}, message string) SuccessResponse {
	return SuccessResponse{BaseResponse: base(c, true), Data: data, Message: message}
}

// NewErrorResponse builds an error body
func NewErrorResponse(c *gin.Context, code int, error string, message string, details interface{}) ErrorResponse {
	return ErrorResponse{
		BaseResponse: base(c, false),
		Error:        error,
		Code:         code,
		Message:      message,
		Details:      details,
	}
}

// NewPaginatedResponse wraps one page
func NewPaginatedResponse(c *gin.Context, data interface{}, pagination Pagination, message string) PaginatedResponse {
	return PaginatedResponse{BaseResponse: base(c, true), Data: data, Pagination: pagination, Message: message}
}

// NewHealthResponse builds the healthcheck body
func NewHealthResponse(c *gin.Context, status, service, version, uptime string, checks map[string]string) HealthResponse {
	return HealthResponse{
		BaseResponse: base(c, status == "OK"),
		Status:       status,
		Service:      service,
		Version:      version,
		Uptime:       uptime,
		Checks:       checks,
	}
}

// NewAuthErrorResponse builds a 401 body
func NewAuthErrorResponse(c *gin.Context, message string) AuthErrorResponse {
	return AuthErrorResponse{
		BaseResponse: base(c, false),
		Error:        "unauthorized",
		Code:         401,
		Message:      message,
	}
}

// NewRateLimitErrorResponse builds a 429 body
func NewRateLimitErrorResponse(c *gin.Context, retryAfter string, limit, remaining int, resetTime time.Time) RateLimitErrorResponse {
	return RateLimitErrorResponse{
		BaseResponse: base(c, false),
		Error:        "rate_limit_exceeded",
		Code:         429,
		Message:      "Too many requests",
		RetryAfter:   retryAfter,
		Limit:        limit,
		Remaining:    remaining,
		ResetTime:    resetTime,
	}
}
