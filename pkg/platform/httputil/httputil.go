package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "middleoffice/pkg/domain-errors"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteException writes the {"exception": <message>} envelope every
// document endpoint uses for failures.
func WriteException(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"exception": message})
}

// WriteError renders err with the exception envelope. The status comes from
// the innermost domain error so wrapped causes keep their meaning.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if code, ok := dErrors.RootCode(err); ok {
		status = dErrors.ToHTTPStatus(code)
	}
	WriteException(w, status, err.Error())
}

// WriteMessage writes the {"body": {"Message": <reason>}} payload used by
// authentication failures.
func WriteMessage(w http.ResponseWriter, status int, reason string) {
	WriteJSON(w, status, map[string]any{
		"body": map[string]string{"Message": reason},
	})
}
