package httpapi

import (
	"encoding/json"
	"net/http"
)

// APIErrorResponse is an OpenAI-compatible error envelope, grounded on the
// house proxy package's error response shape and generalized to the
// firewall's own error catalogue.
type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError is the error object inside an APIErrorResponse.
type APIError struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}

func errorTypeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusUnprocessableEntity, http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return "invalid_request_error"
	case http.StatusNotFound:
		return "not_found_error"
	case http.StatusConflict:
		return "conflict_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusServiceUnavailable:
		return "cancelled_error"
	default:
		if statusCode >= 500 {
			return "server_error"
		}
		return "invalid_request_error"
	}
}

// writeJSONError writes the OpenAI-style error envelope with the given status.
func writeJSONError(w http.ResponseWriter, statusCode int, message string, param *string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := APIErrorResponse{
		Error: APIError{
			Message: message,
			Type:    errorTypeForStatus(statusCode),
			Param:   param,
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeErrorValidation(w http.ResponseWriter, message string, param string) {
	writeJSONError(w, http.StatusUnprocessableEntity, message, &param)
}

func writeErrorConflict(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusConflict, message, nil)
}

func writeErrorNotFound(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusNotFound, message, nil)
}

func writeErrorInternal(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusInternalServerError, message, nil)
}

func writeErrorRateLimit(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusTooManyRequests, message, nil)
}

func writeErrorServiceUnavailable(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusServiceUnavailable, message, nil)
}
