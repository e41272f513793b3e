package util

import (
	"fmt"

	"github.com/google/uuid"
)

// GenerateAnonymousToken 生成匿名答题令牌（UUIDv4，122 位随机熵）。
// 随机源读取失败直接返回 ErrEntropyUnavailable，调用方必须中止开始
// 会话，不允许降级到弱随机源。
func GenerateAnonymousToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return id.String(), nil
}
