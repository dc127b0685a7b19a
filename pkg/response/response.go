package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Daddada866/TrenchBot/internal/types"
)

// Response represents a standardized API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents an error response. Code is the stable machine-readable
// kind; Message is for display.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transport-level error codes (engine kinds pass through verbatim)
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// kindStatus maps engine error kinds to HTTP status codes.
var kindStatus = map[types.ErrorKind]int{
	types.KindRateLimitExceeded:     http.StatusTooManyRequests,
	types.KindInvalidPair:           http.StatusBadRequest,
	types.KindMaxOrdersExceeded:     http.StatusBadRequest,
	types.KindZeroAmount:            http.StatusBadRequest,
	types.KindOrderNotFound:         http.StatusNotFound,
	types.KindNotAuthorized:         http.StatusForbidden,
	types.KindOrderAlreadyFilled:    http.StatusConflict,
	types.KindOrderAlreadyCancelled: http.StatusConflict,
	types.KindInsufficientBalance:   http.StatusBadRequest,
	types.KindSlippageExceeded:      http.StatusConflict,
	types.KindUnknownCommand:        http.StatusBadRequest,
	types.KindBadArgument:           http.StatusBadRequest,
}

// Handle processes the error and returns the appropriate response. Tagged
// engine errors surface their kind verbatim; everything else is sanitized.
func Handle(c *gin.Context, data interface{}, err error) {
	if err == nil {
		Success(c, data)
		return
	}

	if kind := types.KindOf(err); kind != "" {
		status, ok := kindStatus[kind]
		if !ok {
			status = http.StatusBadRequest
		}
		c.JSON(status, Response{
			Success: false,
			Error: &Error{
				Code:    string(kind),
				Message: err.Error(),
			},
		})
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "Resource not found")
		return
	}

	InternalError(c, "An unexpected error occurred")
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	status := http.StatusOK
	if c.Request.Method == "POST" {
		status = http.StatusCreated
	}

	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// NotFound sends a 404 response
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeNotFound,
			Message: message,
		},
	})
}

// BadRequest sends a 400 response
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeBadRequest,
			Message: message,
		},
	})
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeUnauthorized,
			Message: message,
		},
	})
}

// Forbidden sends a 403 response
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeForbidden,
			Message: message,
		},
	})
}

// InternalError sends a 500 response
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Success: false,
		Error: &Error{
			Code:    ErrCodeInternalError,
			Message: message,
		},
	})
}
