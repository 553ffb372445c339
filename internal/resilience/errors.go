package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// ErrQuotaExceeded marks an exhausted provider quota. It is distinct from an
// empty result and triggers credential rotation.
var ErrQuotaExceeded = eris.New("quota exceeded")

// TransientError wraps an error that is safe to retry (429, 5xx, timeouts).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// QuotaError reports that the credential used for a call hit its quota.
type QuotaError struct {
	Service string
	Detail  string
}

func (e *QuotaError) Error() string {
	if e.Detail == "" {
		return e.Service + ": " + ErrQuotaExceeded.Error()
	}
	return e.Service + ": " + ErrQuotaExceeded.Error() + ": " + e.Detail
}

// Is lets errors.Is(err, ErrQuotaExceeded) match any QuotaError.
func (e *QuotaError) Is(target error) bool { return target == ErrQuotaExceeded }

// NewQuotaError builds a QuotaError for service.
func NewQuotaError(service, detail string) *QuotaError {
	return &QuotaError{Service: service, Detail: detail}
}

// IsQuota reports whether err carries a quota exhaustion anywhere in its chain.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var qe *QuotaError
	return errors.As(err, &qe) || errors.Is(err, ErrQuotaExceeded)
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"transport connection broken",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError, a network timeout, a reset or refused connection, or a
// wrapped client error whose message matches a known transient pattern.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}

// StatusError turns a non-2xx provider response into an error, wrapping it
// as transient when the status is retryable.
func StatusError(service string, statusCode int, body []byte) error {
	err := eris.Errorf("%s: unexpected status %d: %s", service, statusCode, string(body))
	if IsTransientHTTPStatus(statusCode) {
		return NewTransientError(err, statusCode)
	}
	return err
}
