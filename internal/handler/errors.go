package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"stellar-pets-api/internal/service"
	"stellar-pets-api/pkg/apierror"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 16

// ledgerError maps ledger failures onto API errors. Unknown errors become a 500
// without leaking their message.
func ledgerError(err error) *apierror.Error {
	switch {
	case errors.Is(err, service.ErrAlreadyExists):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrNotFound):
		return apierror.NotFound(err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		return apierror.InvalidAmount(err.Error())
	case errors.Is(err, service.ErrInsufficientFunds), errors.Is(err, service.ErrInsufficientBalance):
		return apierror.InsufficientFunds(err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return apierror.Unauthorized(err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return apierror.BadRequest(err.Error())
	default:
		return apierror.InternalError("")
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *apierror.Error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		return apierror.BadRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

// queryLimit parses the optional ?limit= parameter, capped at max.
func queryLimit(r *http.Request, def, max int) (int, *apierror.Error) {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return 0, apierror.ValidationError("", apierror.FieldError{
				Field:   "limit",
				Message: "must be a positive integer",
			})
		}
		limit = n
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
