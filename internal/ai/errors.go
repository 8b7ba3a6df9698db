package ai

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// StatusError 模型接口返回的非成功状态
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API 错误 %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusCode HTTP 状态码
func (e *StatusError) StatusCode() int {
	return e.Code
}

// SDK 错误只在文本中带状态码，例如 "status code: 429"
var statusPattern = regexp.MustCompile(`(?i)(?:status[ _]?code|error code|http)[:= ]+(\d{3})`)

// wrapStatus 从 SDK 错误中提取状态码
func wrapStatus(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		return err
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil || code < 400 {
		return err
	}
	return &StatusError{Code: code, Err: err}
}
