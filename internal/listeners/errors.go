package listeners

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse representa la estructura estándar de errores
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
	Method    string      `json:"method"`
	Message   string      `json:"message,omitempty"`
}

// ErrorDetail contiene los detalles del error
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Hint    string      `json:"hint,omitempty"`
}

// SuccessResponse representa la estructura estándar de respuestas exitosas
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Códigos de error estandarizados
const (
	// Client Errors (4xx)
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"

	// Server Errors (5xx)
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeServiceUnavail = "SERVICE_UNAVAILABLE"

	// Business Logic Errors
	ErrCodeSnapshotError   = "SNAPSHOT_ERROR"
	ErrCodeDatabaseError   = "DATABASE_ERROR"
	ErrCodeValidationError = "VALIDATION_ERROR"
)

// RespondWithError envía una respuesta de error estandarizada
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}, hint string) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: message,
			Details: details,
			Hint:    hint,
		},
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// RespondWithSuccess envía una respuesta exitosa estandarizada
func RespondWithSuccess(c *gin.Context, statusCode int, data interface{}, message string) {
	c.JSON(statusCode, SuccessResponse{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Funciones helper para errores comunes

// ValidationError - Error de validación (400)
func ValidationError(c *gin.Context, field string, message string) {
	RespondWithError(c, http.StatusBadRequest, ErrCodeValidationError,
		"Error de validación",
		gin.H{
			"field":  field,
			"reason": message,
		},
		"Verifica que todos los campos requeridos estén presentes y sean del tipo correcto")
}

// SnapshotError - Error calculando el snapshot del dashboard (500)
func SnapshotError(c *gin.Context, err error) {
	RespondWithError(c, http.StatusInternalServerError, ErrCodeSnapshotError,
		"No fue posible calcular el estado del dashboard",
		gin.H{
			"error": err.Error(),
		},
		"Verifica la conectividad con la base de datos. El siguiente ciclo de difusión reintentará automáticamente")
}

// DatabaseError - Error de base de datos (500)
func DatabaseError(c *gin.Context, operation string, err error) {
	RespondWithError(c, http.StatusInternalServerError, ErrCodeDatabaseError,
		"Error de base de datos",
		gin.H{
			"operation": operation,
			"error":     err.Error(),
		},
		"Verifica la conectividad con la base de datos. Contacta al administrador si el error persiste")
}

// Success - Respuesta exitosa genérica
func Success(c *gin.Context, data interface{}, message string) {
	RespondWithSuccess(c, http.StatusOK, data, message)
}
