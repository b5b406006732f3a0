package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// AuthError 表示凭据缺失或无效，需要用户重新提供，不应重试。
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "ai: 缺少 API key"
	}
	return fmt.Sprintf("ai: API key 无效: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// QuotaError 表示触发了速率或额度限制。
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("ai: 超出调用额度，请检查账单设置: %v", e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// FormatError 表示模型返回的内容无法解析。Raw 保留原始文本以便降级处理。
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return "ai: 无法解析模型返回的内容"
	}
	return fmt.Sprintf("ai: 无法解析模型返回的内容: %v", e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// NoOutputError 表示模型既没有返回图片也没有返回说明文字。
type NoOutputError struct{}

func (e *NoOutputError) Error() string {
	return "ai: 模型没有返回任何图片或说明"
}

// ModelRefusalError 表示模型只返回了文字说明而没有图片。
type ModelRefusalError struct {
	Explanation string
}

func (e *ModelRefusalError) Error() string {
	return fmt.Sprintf("ai: 模型未生成图片: %s", e.Explanation)
}

// classify 把 genai 的 API 错误映射为 AuthError / QuotaError，其它错误原样包装。
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		authErr  *AuthError
		quotaErr *QuotaError
	)
	if errors.As(err, &authErr) || errors.As(err, &quotaErr) {
		return err
	}

	code, status, message, ok := apiErrorFields(err)
	if ok {
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return &AuthError{Err: err}
		case code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED":
			return &QuotaError{Err: err}
		case strings.Contains(strings.ToLower(message), "api key"):
			return &AuthError{Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func apiErrorFields(err error) (int, string, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, apiErrPtr.Message, true
	}
	return 0, "", "", false
}
