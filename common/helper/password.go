package helper

import "golang.org/x/crypto/bcrypt"

// HashPassword 新用户的初始密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}
