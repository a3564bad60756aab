package models

import (
	cryptoRand "crypto/rand"
	"fmt"
)

// GenerateVerificationCode 生成6位数字验证码
func GenerateVerificationCode() (string, error) {
	bytes := make([]byte, 3)
	if _, err := randRead(bytes); err != nil {
		return "", err
	}
	code := int(bytes[0])<<16 | int(bytes[1])<<8 | int(bytes[2])
	code = code%900000 + 100000
	return fmt.Sprintf("%06d", code), nil
}

var randRead = func(b []byte) (int, error) {
	return cryptoRand.Read(b)
}
