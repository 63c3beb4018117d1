// Package password 封装口令的加盐哈希与校验。
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashCost 是 bcrypt 工作因子，固定为 10，不开放配置。
const hashCost = 10

// Hash 对明文口令做加盐哈希。
//
// 盐由 bcrypt 每次随机生成并内嵌在输出里，只有熵源故障等
// 极端情况才会返回错误。
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify 校验明文口令是否与存储的哈希匹配。
//
// 不匹配只返回 false，不返回错误；比较过程由 bcrypt 保证
// 不泄露失配位置的时序信息。
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
