package pipeline

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/jad-chahin/stock-sentiment/internal/analyzer"
)

// Class is the handling category of an extraction failure.
type Class int

const (
	// ClassPermanent marks the item as errored and moves on.
	ClassPermanent Class = iota
	// ClassFatalAuth aborts the whole run.
	ClassFatalAuth
	// ClassQuotaExhausted marks the item as errored and stops the run.
	ClassQuotaExhausted
	// ClassTransient retries the same item after a backoff.
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassFatalAuth:
		return "fatal_auth"
	case ClassQuotaExhausted:
		return "quota_exhausted"
	case ClassTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// Classify maps an extraction failure to exactly one Class. The checks run
// in a fixed order (auth, quota, transient) and the first match wins, since
// a quota failure arrives with the same status as an ordinary rate limit.
func Classify(err error) Class {
	if err == nil {
		return ClassPermanent
	}

	status := 0
	var apiErr *analyzer.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return ClassFatalAuth
	}

	msg := strings.ToLower(err.Error())
	if apiErr != nil {
		msg += " " + strings.ToLower(apiErr.Type+" "+apiErr.Code)
	}
	if isRateOrBilling(status, msg) && IsQuotaMessage(msg) {
		return ClassQuotaExhausted
	}

	if isTransientStatus(status) || isTransportError(err) {
		return ClassTransient
	}
	return ClassPermanent
}

// IsQuotaMessage reports whether msg says the account's quota is used up.
func IsQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "insufficient_quota") ||
		(strings.Contains(msg, "quota") && strings.Contains(msg, "exceed")) ||
		strings.Contains(msg, "credit balance is too low")
}

func isRateOrBilling(status int, msg string) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusPaymentRequired:
		return true
	case http.StatusBadRequest:
		return strings.Contains(msg, "credit balance")
	}
	return false
}

func isTransientStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status == http.StatusConflict:
		return true
	case status >= 500:
		return true
	}
	return false
}

// isTransportError recognises timeouts and broken connections below the
// HTTP layer.
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
