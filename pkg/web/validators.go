package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

// gt returns a ParamValidator that checks if the argument is greater than the given bound.
func gt(bound int64) ParamValidator {
	return func(argValue int64) bool {
		return argValue > bound
	}
}

// ParseValidateGt parses a required integer query parameter and validates it
// is greater than value.
func ParseValidateGt(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value int64) (int64, bool) {
	return parseValidate(r, w, logger, key, gt(value), nil)
}

// ParseValidateGtDefault behaves like ParseValidateGt but falls back to def
// when the parameter is absent.
func ParseValidateGtDefault(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value, def int64) (int64, bool) {
	return parseValidate(r, w, logger, key, gt(value), &def)
}

func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator, def *int64) (int64, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		if def != nil {
			return *def, true
		}
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil || !pValidator(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return intValue, true
}
