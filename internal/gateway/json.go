package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

// writeRaw sends an upstream JSON document without re-encoding it.
func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type errResponse struct {
	Error   string `json:"error" validate:"required"`
	Details any    `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func errorDetails(msg string, details any) errResponse {
	return errResponse{Error: msg, Details: details}
}
