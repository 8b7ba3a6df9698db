// Package id 会话、归档记录与请求的ID
package id

import (
	"github.com/google/uuid"
)

// New 生成按时间有序的 UUIDv7，便于归档记录按ID排序
func New() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// IsValid 是否为合法的 UUID
func IsValid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
