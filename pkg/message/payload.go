package message

// Ack 房间操作确认（joined_room / left_room）
type Ack struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// Broadcast 广播给房间其他成员的消息
//
// Type 固定为 "message"，原始消息类型在校验阶段已经完成了
// 按类型的内容检查，广播时统一归一化。
type Broadcast struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ErrorPayload 发回给消息来源连接的错误响应
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewJoinedAck 创建加入房间确认
func NewJoinedAck(roomID string) Ack {
	return Ack{Type: "joined_room", RoomID: roomID}
}

// NewLeftAck 创建离开房间确认
func NewLeftAck(roomID string) Ack {
	return Ack{Type: "left_room", RoomID: roomID}
}

// NewBroadcast 创建广播消息
func NewBroadcast(userID, content string) Broadcast {
	return Broadcast{UserID: userID, Type: "message", Content: content}
}
