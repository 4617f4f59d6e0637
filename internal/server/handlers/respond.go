// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"shareboard/internal/fault"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithFault maps a service error onto the shared status taxonomy.
// Internal detail stays in the log; the caller sees a generic message.
func respondWithFault(w http.ResponseWriter, r *http.Request, operation string, err error) {
	code := fault.HTTPStatus(err)
	if code >= 500 {
		log.Printf("HTTP %s %s: %s: %v", r.Method, r.URL.Path, operation, err)
	}

	body := map[string]string{"error": fault.PublicMessage(err)}
	if reason := fault.ReasonOf(err); reason != "" {
		body["reason"] = reason
	}
	respondWithJSON(w, code, body)
}

// respondWithError renders a handler-level error (bad input, missing params).
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
