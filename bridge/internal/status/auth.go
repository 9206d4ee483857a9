package status

import "net/http"

// APIKeyHeader is the request header checked by APIKeyMiddleware.
const APIKeyHeader = "x-api-key"

// APIKeyMiddleware returns HTTP middleware that enforces API key
// authentication on every request.
//
// When key is empty all requests pass through, so local setups can run with
// auth disabled. Otherwise the APIKeyHeader request header must match key
// exactly; a missing, empty, or incorrect key gets a 401 JSON error.
func APIKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get(APIKeyHeader) != key {
				jsonErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
