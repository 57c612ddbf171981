package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/response"
)

// timeTokenWindow is the validity window for time tokens. A token generated
// in one window is also accepted in the adjacent windows, so clients near a
// window boundary do not get spurious rejections.
const timeTokenWindow = 5 * time.Minute

// APIKeyMiddleware protects internal endpoints with a shared API key plus a
// rolling time token derived from it. Both the X-API-Key and X-Time-Token
// headers must be present and valid. The key is read from the
// INTERNAL_API_KEY environment variable on every request so rotation does
// not require a restart.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedKey := os.Getenv("INTERNAL_API_KEY")
		if expectedKey == "" {
			response.RespondError(w, http.StatusInternalServerError, "internal configuration error", "Authentication not loaded")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
			return
		}
		if !hmac.Equal([]byte(apiKey), []byte(expectedKey)) {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		timeToken := r.Header.Get("X-Time-Token")
		if timeToken == "" {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing Time token")
			return
		}
		if !validateTimeToken(expectedKey, timeToken) {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Time token is invalid or expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GenerateTimeToken produces the time token for the current window.
// Clients send it in the X-Time-Token header alongside the API key.
func GenerateTimeToken(apiKey string) string {
	return timeTokenFor(apiKey, time.Now().Unix()/int64(timeTokenWindow.Seconds()))
}

// validateTimeToken accepts tokens from the current window and the windows
// directly before and after it.
func validateTimeToken(apiKey, token string) bool {
	window := time.Now().Unix() / int64(timeTokenWindow.Seconds())
	for _, w := range []int64{window, window - 1, window + 1} {
		if hmac.Equal([]byte(token), []byte(timeTokenFor(apiKey, w))) {
			return true
		}
	}
	return false
}

func timeTokenFor(apiKey string, window int64) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	fmt.Fprintf(mac, "%d", window)
	return hex.EncodeToString(mac.Sum(nil))
}
