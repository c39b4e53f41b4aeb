package biz

import (
	"regexp"
)

// 上游错误消息里可能带出凭证。入库、打日志、返回调用方之前
// 统一清洗，宁可多洗不可漏洗。
var secretPatterns = []*regexp.Regexp{
	// Authorization: Bearer xxx
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]{8,}=*`),
	// OpenAI 风格密钥
	regexp.MustCompile(`sk-[A-Za-z0-9\-_]{8,}`),
	// api_key=... / apikey: ...
	regexp.MustCompile(`(?i)api[_-]?key["'\s]*[:=]["'\s]*[A-Za-z0-9\-._~+/]{8,}`),
	// token=...
	regexp.MustCompile(`(?i)(access|auth|secret)[_-]?token["'\s]*[:=]["'\s]*[A-Za-z0-9\-._~+/]{8,}`),
}

const redactedPlaceholder = "[REDACTED]"

// SanitizeSecrets 清除消息中密钥形状的子串
func SanitizeSecrets(message string) string {
	for _, pattern := range secretPatterns {
		message = pattern.ReplaceAllString(message, redactedPlaceholder)
	}
	return message
}
