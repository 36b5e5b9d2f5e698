package oauth2client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

var (
	// ErrInvalidCredential matches every *InvalidCredentialError via errors.Is.
	ErrInvalidCredential = errors.New("oauth2client: invalid credential")

	// ErrNoRefreshToken is returned by Refresh when the current credential cannot be renewed.
	ErrNoRefreshToken = errors.New("oauth2client: no refresh token available")

	// ErrNoReplacement is returned by Reauthenticate when neither the listener nor a refresh
	// produced a live credential.
	ErrNoReplacement = errors.New("oauth2client: no replacement credential")

	// ErrInvalidGrant is returned when a grant is missing required fields. No request is sent.
	ErrInvalidGrant = errors.New("oauth2client: invalid grant")
)

// InvalidCredentialError reports that the authorization endpoint rejected the grant with 401.
type InvalidCredentialError struct {
	StatusCode  int
	ServerError string
}

func (e *InvalidCredentialError) Error() string {
	if e.ServerError == "" {
		return fmt.Sprintf("oauth2client: credential rejected (%d)", e.StatusCode)
	}
	return fmt.Sprintf("oauth2client: credential rejected (%d): %s", e.StatusCode, e.ServerError)
}

// Is makes errors.Is(err, ErrInvalidCredential) succeed.
func (e *InvalidCredentialError) Is(target error) bool {
	return target == ErrInvalidCredential
}

// TransportError reports a non-2xx, non-401 response from the authorization endpoint.
type TransportError struct {
	StatusCode  int
	Reason      string
	ServerError string

	err error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("oauth2client: token endpoint returned %d %s", e.StatusCode, e.Reason)
	if e.ServerError != "" {
		msg += ": " + e.ServerError
	}
	return msg
}

// Unwrap returns the underlying *oauth2.RetrieveError.
func (e *TransportError) Unwrap() error {
	return e.err
}

// ScopeMismatchError reports a successful exchange whose granted scope does not cover the
// requested one. The stored credential is left unchanged.
type ScopeMismatchError struct {
	Requested string
	Granted   string
}

func (e *ScopeMismatchError) Error() string {
	return fmt.Sprintf("oauth2client: requested scope %q, granted %q", e.Requested, e.Granted)
}

// classify maps token endpoint failures onto the package error types.
func classify(grantType string, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return fmt.Errorf("oauth2client: %s grant: %w", grantType, err)
	}

	serverError := re.ErrorCode
	if serverError == "" {
		serverError = strings.TrimSpace(string(re.Body))
	}

	if re.Response.StatusCode == http.StatusUnauthorized {
		return &InvalidCredentialError{
			StatusCode:  re.Response.StatusCode,
			ServerError: serverError,
		}
	}

	return &TransportError{
		StatusCode:  re.Response.StatusCode,
		Reason:      reasonPhrase(re.Response.Status, re.Response.StatusCode),
		ServerError: serverError,
		err:         re,
	}
}

// reasonPhrase strips the numeric code from an HTTP status line such as "502 Bad Gateway".
func reasonPhrase(status string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
}
