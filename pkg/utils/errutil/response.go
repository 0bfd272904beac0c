package errutil

import (
	"encoding/json"
	"net/http"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteError writes {"error": msg, "fields": {...}} with the given status code
func WriteError(w http.ResponseWriter, statusCode int, msg string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg, Fields: fields})
}
