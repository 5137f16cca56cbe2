package oauthmodel

import "net/http"

// ErrorCode is an OAuth 2.0 error code as returned in the "error" field.
type ErrorCode string

const (
	ErrorCodeInvalidRequest          ErrorCode = "invalid_request"
	ErrorCodeInvalidClient           ErrorCode = "invalid_client"
	ErrorCodeInvalidClientMetadata   ErrorCode = "invalid_client_metadata"
	ErrorCodeInvalidGrant            ErrorCode = "invalid_grant"
	ErrorCodeUnsupportedGrantType    ErrorCode = "unsupported_grant_type"
	ErrorCodeUnsupportedResponseType ErrorCode = "unsupported_response_type"
	ErrorCodeAccessDenied            ErrorCode = "access_denied"
	ErrorCodeUnauthorized            ErrorCode = "unauthorized"
	ErrorCodeInvalidToken            ErrorCode = "invalid_token"
	ErrorCodeServerError             ErrorCode = "server_error"
)

var defaultStatus = map[ErrorCode]int{
	ErrorCodeInvalidRequest:          http.StatusBadRequest,
	ErrorCodeInvalidClient:           http.StatusUnauthorized,
	ErrorCodeInvalidClientMetadata:   http.StatusBadRequest,
	ErrorCodeInvalidGrant:            http.StatusBadRequest,
	ErrorCodeUnsupportedGrantType:    http.StatusBadRequest,
	ErrorCodeUnsupportedResponseType: http.StatusBadRequest,
	ErrorCodeAccessDenied:            http.StatusForbidden,
	ErrorCodeUnauthorized:            http.StatusUnauthorized,
	ErrorCodeInvalidToken:            http.StatusUnauthorized,
	ErrorCodeServerError:             http.StatusInternalServerError,
}

// Error is a client-visible OAuth failure. Description must never carry secrets or tokens.
type Error struct {
	Code        ErrorCode `json:"error"`
	Description string    `json:"error_description,omitempty"`
	Status      int       `json:"-"`
}

// NewError builds an Error with the conventional HTTP status for code.
func NewError(code ErrorCode, description string) *Error {
	status, ok := defaultStatus[code]
	if !ok {
		status = http.StatusBadRequest
	}
	return &Error{Code: code, Description: description, Status: status}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Description
}

func InvalidRequestError(description string) *Error {
	return NewError(ErrorCodeInvalidRequest, description)
}

func InvalidGrantError(description string) *Error {
	return NewError(ErrorCodeInvalidGrant, description)
}

func InvalidClientMetadataError(description string) *Error {
	return NewError(ErrorCodeInvalidClientMetadata, description)
}
