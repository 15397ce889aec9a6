package message

// Type 消息类型（封闭集合，路由时穷举匹配）
type Type string

const (
	// TypeJoinRoom 加入房间
	TypeJoinRoom Type = "join_room"
	// TypeLeaveRoom 离开房间
	TypeLeaveRoom Type = "leave_room"
	// TypeMessage 文本消息
	TypeMessage Type = "message"
	// TypeImage 图片消息（content 为 base64）
	TypeImage Type = "image"
	// TypeDocument 文档消息（content 为 base64）
	TypeDocument Type = "document"
	// TypeNotification 通知消息
	TypeNotification Type = "notification"
)

// Metadata 消息元数据
type Metadata struct {
	// RoomID 目标房间 ID
	RoomID string `json:"roomId" validate:"required"`
}

// Message 客户端消息信封
//
// Content 的语义取决于 Type：文本类消息为原始文本，
// image/document 为 base64 编码的二进制数据。
type Message struct {
	Type     Type     `json:"type" validate:"required,oneof=join_room leave_room message image document notification"`
	Content  string   `json:"content" validate:"required"`
	Metadata Metadata `json:"metadata" validate:"required"`
}
