package message

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

// 内容限制
const (
	// MaxRoomNameLen join_room/leave_room 内容最大长度（字符）
	MaxRoomNameLen = 25
	// MaxNotificationLen 通知内容最大长度（字符）
	MaxNotificationLen = 512
	// MaxTextLen 文本消息最大长度（字符）
	MaxTextLen = 65535
	// MaxBinarySize 图片/文档解码后最大字节数（1MB）
	MaxBinarySize = 1 << 20
)

// Validator 两阶段消息校验器
//
// 第一阶段做结构校验（JSON 解析 + 必填字段 + 类型枚举），
// 第二阶段按消息类型执行内容策略（长度限制、编码检查、
// 媒体类型嗅探）并完成净化。调用方必须使用返回的净化后
// 消息，不要继续使用原始输入。
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate 校验并净化一帧原始消息
func (v *Validator) Validate(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, newError(KindSchemaViolation, "Invalid JSON: "+err.Error())
	}

	if err := v.validate.Struct(&msg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			// 聚合所有结构错误
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, describeFieldError(fe))
			}
			return nil, newError(KindSchemaViolation, "[JSON-SCHEMA] | "+strings.Join(parts, " | "))
		}
		return nil, newError(KindSchemaViolation, err.Error())
	}

	if err := v.applyPolicy(&msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// applyPolicy 按消息类型执行内容策略并原地净化
func (v *Validator) applyPolicy(msg *Message) error {
	switch msg.Type {
	case TypeJoinRoom, TypeLeaveRoom:
		if utf8.RuneCountInString(msg.Content) > MaxRoomNameLen {
			return newError(KindContentTooLarge,
				fmt.Sprintf("Room name is too long. Max length is %d characters.", MaxRoomNameLen))
		}
		msg.Content = html.EscapeString(msg.Content)

	case TypeMessage:
		if utf8.RuneCountInString(msg.Content) > MaxTextLen {
			return newError(KindContentTooLarge, "Message content is too long")
		}
		msg.Content = html.EscapeString(msg.Content)

	case TypeNotification:
		if utf8.RuneCountInString(msg.Content) > MaxNotificationLen {
			return newError(KindContentTooLarge,
				fmt.Sprintf("Notification content is too long. Max length is %d characters.", MaxNotificationLen))
		}
		msg.Content = html.EscapeString(msg.Content)

	case TypeImage:
		data, err := base64.StdEncoding.DecodeString(msg.Content)
		if err != nil {
			return newError(KindInvalidEncoding, "Invalid base64 encoding")
		}
		if len(data) > MaxBinarySize {
			return newError(KindContentTooLarge, "Image size is too large")
		}
		// 基于魔数嗅探，不信任客户端声明的类型
		mt := mimetype.Detect(data)
		if !mt.Is("image/jpeg") && !mt.Is("image/png") && !mt.Is("image/gif") {
			return newError(KindUnsupportedMediaType, "Invalid image type: "+mt.String())
		}
		// 二进制内容原样透传

	case TypeDocument:
		data, err := base64.StdEncoding.DecodeString(msg.Content)
		if err != nil {
			return newError(KindInvalidEncoding, "Invalid base64 encoding")
		}
		if len(data) > MaxBinarySize {
			return newError(KindContentTooLarge, "Document size is greater than 1MB")
		}
		mt := mimetype.Detect(data)
		if !mt.Is("application/pdf") {
			return newError(KindUnsupportedMediaType,
				"Invalid document type: "+mt.String()+". Only PDF files are allowed.")
		}

	default:
		// 结构校验的 oneof 已经拦截，这里兜底
		return newError(KindUnknownType, "Invalid message type!")
	}

	return nil
}

// describeFieldError 将单个字段错误渲染为可读文本
func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of [" + fe.Param() + "]"
	default:
		return field + " failed on '" + fe.Tag() + "'"
	}
}
