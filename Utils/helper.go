package utils

import (
	"encoding/json"
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"
)

// InitLogger configures logrus for structured JSON output. LOG_LEVEL can be
// set to debug/info/warn/error; anything unparsable keeps the info default.
func InitLogger() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := log.ParseLevel(levelStr); err == nil {
			log.SetLevel(level)
		}
	}

	log.Info("Logger initialized")
}

// Response represents a standardized API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SendJSONResponse sends a standardized JSON response with proper headers
// Sets Content-Type: application/json and handles encoding consistently
func SendJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Log encoding errors but don't expose to client
		log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// SendErrorResponse sends a standardized error response
// Use this for all error responses to maintain consistency
func SendErrorResponse(w http.ResponseWriter, status int, message string) {
	SendJSONResponse(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// SendSuccessResponse sends a standardized success response
// Use this for all successful responses to maintain consistency
func SendSuccessResponse(w http.ResponseWriter, data interface{}) {
	SendJSONResponse(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// SendCreatedResponse sends a standardized 201 response for created resources
func SendCreatedResponse(w http.ResponseWriter, data interface{}) {
	SendJSONResponse(w, http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}
