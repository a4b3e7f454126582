// Package errclass maps arbitrary failures to a fixed taxonomy with
// retryability and user-facing text. The table is pinned by existing
// behavior: user strings and bucket boundaries must not drift.
package errclass

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// Kind is the error taxonomy bucket.
type Kind string

const (
	UnknownError  Kind = "UNKNOWN_ERROR"
	NetworkError  Kind = "NETWORK_ERROR"
	TimeoutError  Kind = "TIMEOUT_ERROR"
	APIKeyError   Kind = "API_KEY_ERROR"
	QuotaExceeded Kind = "QUOTA_EXCEEDED"
	InternalError Kind = "INTERNAL_ERROR"
)

// Classification is the outcome of classifying one failure.
type Classification struct {
	Kind        Kind
	Retryable   bool
	UserMessage string
}

// User-facing messages. The underlying error detail is never leaked to
// clients; these fixed strings are all they see.
const (
	msgUnknown  = "未知错误"
	msgNetwork  = "网络连接异常，请检查网络设置后重试"
	msgTimeout  = "请求超时，请稍后重试"
	msgAPIKey   = "API密钥配置错误，请联系管理员"
	msgQuota    = "API调用配额已用完，请稍后重试"
	msgInternal = "系统内部错误，请稍后重试"
)

// Classify evaluates the taxonomy in priority order: nil, connection
// failures, timeouts, then case-insensitive substring matches on the
// message text, and finally the generic internal bucket.
//
// "model not found" intentionally lands in INTERNAL_ERROR/retryable
// rather than a dedicated bucket.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: UnknownError, Retryable: false, UserMessage: msgUnknown}
	}

	if isConnectionError(err) {
		return Classification{Kind: NetworkError, Retryable: true, UserMessage: msgNetwork}
	}

	if isTimeout(err) {
		return Classification{Kind: TimeoutError, Retryable: true, UserMessage: msgTimeout}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key"):
		return Classification{Kind: APIKeyError, Retryable: false, UserMessage: msgAPIKey}
	case strings.Contains(msg, "rate limit"):
		return Classification{Kind: QuotaExceeded, Retryable: false, UserMessage: msgQuota}
	default:
		return Classification{Kind: InternalError, Retryable: true, UserMessage: msgInternal}
	}
}

// isConnectionError reports connection-refused and unknown-host type
// failures.
func isConnectionError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isTimeout reports request or socket timeouts.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
