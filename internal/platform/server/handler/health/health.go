package health

import "net/http"

// CheckHandler answers liveness probes for the demo HTTP server.
func CheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
