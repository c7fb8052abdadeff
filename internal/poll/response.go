package poll

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ghostwire/relay/internal/relayerr"
)

// writeJSON writes flat, unwrapped JSON bodies: no generic
// "data"/"error" envelope key wraps the payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("poll: write response failed", "err", err)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Code: code, Message: relayerr.Message(code)})
}
