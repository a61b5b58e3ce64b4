package httpjson

import (
	"encoding/json"
	"net/http"
)

type ErrorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	Write(w, status, ErrorBody{Error: msg})
}

// WriteValidationError renvoie 400 avec le détail par champ.
func WriteValidationError(w http.ResponseWriter, msg string, details map[string]string) {
	Write(w, http.StatusBadRequest, ErrorBody{Error: msg, Details: details})
}
