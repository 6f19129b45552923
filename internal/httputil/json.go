package httputil

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Error writes a JSON error response with a short human-readable
// message. Internal error detail never leaks through here.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, errorResponse{Success: false, Message: message})
}

// MessageResponse is the generic acknowledgment shape.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK writes a success acknowledgment.
func OK(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageResponse{Success: true, Message: message})
}
