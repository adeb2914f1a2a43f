package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"feedback-hub/internal/utils"
)

// Recoverer turns panics into a 500 response carrying the stack in the log.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				apiErr := utils.InternalError(fmt.Errorf("panic: %v", rec))
				apiErr.Stack = string(debug.Stack())
				utils.Fail(w, r, apiErr)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
