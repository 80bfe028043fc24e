package httpapi

import (
	"encoding/json"
	"net/http"
)

// Codes the adapter produces itself. Auth failure codes come from
// tokenauth and middleware.
const (
	codeMissingCredentials = "MISSING_CREDENTIALS"
	codeNoRefreshToken     = "NO_REFRESH_TOKEN"
	codeInternal           = "INTERNAL_ERROR"
	codeNotFound           = "NOT_FOUND"
	codeUnavailable        = "UNAVAILABLE"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal server error", codeInternal)
}
