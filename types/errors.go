package types

import (
	"errors"
	"fmt"
)

// ConfigurationError 表示不可恢复的配置错误：缺少表名、列映射不合法、未设置驱动等。
type ConfigurationError struct {
	Op  string
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InputError 表示单次调用的输入错误，在发送任何 SQL 之前返回。
type InputError struct {
	Op  string
	Msg string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// NewConfigurationError 创建配置错误。
func NewConfigurationError(op, format string, args ...any) error {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// WrapConfigurationError 创建带原因的配置错误。
func WrapConfigurationError(op string, err error, format string, args ...any) error {
	return &ConfigurationError{Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NewInputError 创建输入错误。
func NewInputError(op, format string, args ...any) error {
	return &InputError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsConfigurationError 判断 err 链中是否存在 ConfigurationError。
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsInputError 判断 err 链中是否存在 InputError。
func IsInputError(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}
