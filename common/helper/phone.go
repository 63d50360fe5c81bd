package helper

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// 中国大陆 11 位手机号
var mobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

// 用户名最大字符数（与 users.name 列宽一致）
const MaxNameLen = 64

// 手机号格式校验函数，它用于验证中国大陆的 11 位手机号是否合法
func ValidateMobile(mobile string) bool {
	return mobileRe.MatchString(mobile)
}

// ValidateName 非空白且不超过 MaxNameLen 个字符
func ValidateName(name string) bool {
	n := strings.TrimSpace(name)
	return n != "" && utf8.RuneCountInString(n) <= MaxNameLen
}

// 手机号码脱敏
func MaskPhone(mobile string) string {
	if len(mobile) != 11 {
		return "Xxxx"
	}

	return mobile[:3] + "****" + mobile[7:]
}

func MaskName(name string) string {
	if len(name) == 0 {
		return ""
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return "*"
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}
