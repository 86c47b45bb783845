package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrValidation 表示必填字段缺失或格式不正确
	ErrValidation = errors.New("validation failed")
	// ErrConflict 表示邮箱或用户名已被占用
	ErrConflict = errors.New("email or username already exists")
	// ErrInvalidCredentials 表示用户名不存在或密码不匹配，两者不做区分
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrForbidden 表示当前用户无权修改该资源
	ErrForbidden = errors.New("not allowed to modify this resource")
	// ErrArticleNotFound 表示文章 ID 不存在
	ErrArticleNotFound = errors.New("article not found")
	// ErrUserNotFound 表示用户 ID 不存在，例如会话指向已删除的账号
	ErrUserNotFound = errors.New("user not found")
	// ErrFileTooLarge 是 ErrValidation 的一种
	ErrFileTooLarge = fmt.Errorf("%w: file exceeds upload limit", ErrValidation)
	// ErrMissingFields 表示注册表单存在空字段
	ErrMissingFields = fmt.Errorf("%w: all fields are required", ErrValidation)
)

// ValidationMessage 返回校验错误中可以展示给用户的部分，首字母大写。
func ValidationMessage(err error) string {
	prefix := ErrValidation.Error() + ": "
	msg := err.Error()
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return "Invalid input"
	}
	msg = msg[idx+len(prefix):]
	if msg == "" {
		return "Invalid input"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// isDuplicateEntry 识别唯一约束冲突；TranslateError 未覆盖的驱动按错误文本兜底。
func isDuplicateEntry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
