package errclass

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
		message   string
	}{
		{
			name:      "nil error",
			err:       nil,
			kind:      UnknownError,
			retryable: false,
			message:   "未知错误",
		},
		{
			name:      "connection refused",
			err:       fmt.Errorf("dial upstream: %w", syscall.ECONNREFUSED),
			kind:      NetworkError,
			retryable: true,
			message:   "网络连接异常，请检查网络设置后重试",
		},
		{
			name:      "connection reset",
			err:       fmt.Errorf("read body: %w", syscall.ECONNRESET),
			kind:      NetworkError,
			retryable: true,
			message:   "网络连接异常，请检查网络设置后重试",
		},
		{
			name:      "dns failure",
			err:       &net.DNSError{Err: "no such host", Name: "api.example.com"},
			kind:      NetworkError,
			retryable: true,
			message:   "网络连接异常，请检查网络设置后重试",
		},
		{
			name:      "context deadline",
			err:       fmt.Errorf("stream aborted: %w", context.DeadlineExceeded),
			kind:      TimeoutError,
			retryable: true,
			message:   "请求超时，请稍后重试",
		},
		{
			name:      "api key rejected",
			err:       errors.New("upstream returned 401: Invalid API key provided"),
			kind:      APIKeyError,
			retryable: false,
			message:   "API密钥配置错误，请联系管理员",
		},
		{
			name:      "rate limited",
			err:       errors.New("upstream returned 429: Rate limit exceeded"),
			kind:      QuotaExceeded,
			retryable: false,
			message:   "API调用配额已用完，请稍后重试",
		},
		{
			name:      "model not found lands in internal",
			err:       errors.New("model not found: gpt-99"),
			kind:      InternalError,
			retryable: true,
			message:   "系统内部错误，请稍后重试",
		},
		{
			name:      "arbitrary failure",
			err:       errors.New("something broke"),
			kind:      InternalError,
			retryable: true,
			message:   "系统内部错误，请稍后重试",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.message, got.UserMessage)
		})
	}
}

func TestClassify_TimeoutBeatsSubstringMatch(t *testing.T) {
	// A timeout whose text also mentions the API key still classifies as
	// a timeout.
	err := fmt.Errorf("api key check: %w", context.DeadlineExceeded)
	got := Classify(err)
	assert.Equal(t, TimeoutError, got.Kind)
}
