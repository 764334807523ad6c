package http

import (
	"encoding/json"
	"net/http"
)

const maxJSONBodyBytes int64 = 1 << 20 // 1 MiB

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// decodeJSONBody decodes a size-limited JSON request body. Unknown fields
// are dropped rather than rejected; self-service endpoints only apply their
// allow-listed fields.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() {
		_ = limited.Close()
	}()

	return json.NewDecoder(limited).Decode(dst)
}
