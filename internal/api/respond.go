package api

import (
	"encoding/json"
	"net/http"
)

// respondWithJSON writes a success envelope.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(map[string]interface{}{
		"success": true,
		"data":    payload,
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes an error envelope.
func respondWithError(w http.ResponseWriter, code int, message string) {
	response, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"message": message,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
