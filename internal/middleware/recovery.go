package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"stellar-pets-api/pkg/apierror"
	"stellar-pets-api/pkg/response"
)

// Recovery returns a middleware that recovers from panics.
func Recovery(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(logrus.Fields{
						"panic":      err,
						"path":       r.URL.Path,
						"request_id": GetRequestID(r.Context()),
						"stack":      string(debug.Stack()),
					}).Error("recovered from panic")

					response.Error(w, apierror.InternalError("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
