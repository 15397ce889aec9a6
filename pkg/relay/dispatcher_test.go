package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/relay/pkg/auth"
	"github.com/tokmz/relay/pkg/message"
	"github.com/tokmz/relay/pkg/registry"
	"github.com/tokmz/relay/pkg/room"
)

const testAppID = "relay-test"

// closeCall 记录一次关闭调用
type closeCall struct {
	connID string
	code   int
	reason string
}

// fakeTransport 捕获推送与关闭的假传输层
type fakeTransport struct {
	mu     sync.Mutex
	pushes map[string][][]byte
	closes []closeCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{pushes: make(map[string][][]byte)}
}

func (f *fakeTransport) Push(connID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes[connID] = append(f.pushes[connID], payload)
	return nil
}

func (f *fakeTransport) Close(connID string, code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, closeCall{connID: connID, code: code, reason: reason})
}

// payloads 解码某条连接收到的全部 JSON 推送
func (f *fakeTransport) payloads(t *testing.T, connID string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]map[string]any, 0, len(f.pushes[connID]))
	for _, raw := range f.pushes[connID] {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

// stubVerifier 只接受固定令牌
type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*auth.Claims, error) {
	if token == "good-token" {
		return &auth.Claims{UserID: "stub"}, nil
	}
	return nil, auth.ErrTokenInvalid
}

// testDispatcher 内存存储 + 假传输层的完整调度器
func testDispatcher(t *testing.T) (*Dispatcher, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	d := NewDispatcher(
		testAppID,
		auth.NewGateway(stubVerifier{}, auth.NewTokenCache(time.Minute)),
		message.NewValidator(),
		room.NewMemoryManager(),
		registry.NewMemoryRegistry(),
		transport,
		nil,
	)
	return d, transport
}

// openHeaders 合法握手头
func openHeaders(userID string) http.Header {
	h := http.Header{}
	h.Set(HeaderUserID, userID)
	h.Set(HeaderAppID, testAppID)
	h.Set(HeaderToken, "good-token")
	return h
}

// open 以用户身份打开一条连接
func open(t *testing.T, d *Dispatcher, connID, userID string) {
	t.Helper()
	require.NoError(t, d.HandleOpen(context.Background(), connID, "10.0.0.1:1234", openHeaders(userID)))
}

// frame 构造一帧消息
func frame(t *testing.T, typ, content, roomID string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"type":     typ,
		"content":  content,
		"metadata": map[string]any{"roomId": roomID},
	})
	require.NoError(t, err)
	return raw
}

// TestHandshake 握手状态机
func TestHandshake(t *testing.T) {
	ctx := context.Background()

	t.Run("Accepted", func(t *testing.T) {
		d, transport := testDispatcher(t)

		err := d.HandleOpen(ctx, "c1", "10.0.0.1:1234", openHeaders("alice"))
		require.NoError(t, err)

		assert.Empty(t, transport.closes)
		assert.Equal(t, StateOpen, d.ConnState("c1"))

		userID, ok, _ := d.registry.Lookup(ctx, "c1")
		require.True(t, ok)
		assert.Equal(t, "alice", userID)
	})

	t.Run("Rejections", func(t *testing.T) {
		tests := []struct {
			name       string
			mutate     func(http.Header)
			wantCode   int
			wantReason string
		}{
			{"MissingUserID", func(h http.Header) { h.Del(HeaderUserID) }, CloseInvalidID, "Invalid user id!"},
			{"MissingAppID", func(h http.Header) { h.Del(HeaderAppID) }, CloseInvalidID, "Invalid app id!"},
			{"WrongAppID", func(h http.Header) { h.Set(HeaderAppID, "other-app") }, CloseInvalidID, "Invalid app id!"},
			{"MissingToken", func(h http.Header) { h.Del(HeaderToken) }, CloseTokenMissing, "Token not provided!"},
			{"InvalidToken", func(h http.Header) { h.Set(HeaderToken, "bad-token") }, CloseTokenInvalid, "Invalid token!"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				d, transport := testDispatcher(t)

				h := openHeaders("alice")
				tt.mutate(h)

				err := d.HandleOpen(ctx, "c1", "10.0.0.1:1234", h)
				require.Error(t, err)

				var he *HandshakeError
				require.ErrorAs(t, err, &he)
				assert.Equal(t, tt.wantCode, he.Code)

				require.Len(t, transport.closes, 1)
				assert.Equal(t, tt.wantCode, transport.closes[0].code)
				assert.Equal(t, tt.wantReason, transport.closes[0].reason)

				// 拒绝后没有绑定留下
				_, bound, _ := d.registry.Lookup(ctx, "c1")
				assert.False(t, bound)
				assert.Equal(t, StateClosed, d.ConnState("c1"))
			})
		}
	})
}

// TestJoinAndLeaveRoom 加入/离开房间与确认回执
func TestJoinAndLeaveRoom(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)
	open(t, d, "cA", "A")

	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))

	member, _ := d.rooms.IsMember(ctx, "r1", "A")
	assert.True(t, member)

	got := transport.payloads(t, "cA")
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"type": "joined_room", "room_id": "r1"}, got[0])

	d.HandleFrame(ctx, "cA", frame(t, "leave_room", "bye", "r1"))

	member, _ = d.rooms.IsMember(ctx, "r1", "A")
	assert.False(t, member)

	got = transport.payloads(t, "cA")
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"type": "left_room", "room_id": "r1"}, got[1])
}

// TestBroadcastExcludesSender 广播给其他成员，发送方除外
func TestBroadcastExcludesSender(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)
	open(t, d, "cA", "A")
	open(t, d, "cC", "C")

	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))
	d.HandleFrame(ctx, "cC", frame(t, "join_room", "hi", "r1"))

	d.HandleFrame(ctx, "cA", frame(t, "message", "hello", "r1"))

	got := transport.payloads(t, "cC")
	require.Len(t, got, 2) // 自己的 join 回执 + A 的广播
	assert.Equal(t, map[string]any{"user_id": "A", "type": "message", "content": "hello"}, got[1])

	// 发送方只有自己的 join 回执
	assert.Len(t, transport.payloads(t, "cA"), 1)
}

// TestNonMemberCannotBroadcast 非成员发消息收到错误，其他连接不受影响
func TestNonMemberCannotBroadcast(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)
	open(t, d, "cA", "A")
	open(t, d, "cB", "B")

	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))

	d.HandleFrame(ctx, "cB", frame(t, "message", "sneaky", "r1"))

	got := transport.payloads(t, "cB")
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"error": "User not in room!"}, got[0])

	// 房间成员没有收到任何东西
	assert.Len(t, transport.payloads(t, "cA"), 1) // 只有 join 回执

	// 连接保持打开
	assert.Equal(t, StateOpen, d.ConnState("cB"))
}

// TestInvalidFrameKeepsConnectionOpen 帧校验失败只回错误，连接可以继续用
func TestInvalidFrameKeepsConnectionOpen(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)
	open(t, d, "cA", "A")

	d.HandleFrame(ctx, "cA", []byte("{not json"))

	got := transport.payloads(t, "cA")
	require.Len(t, got, 1)
	errMsg, ok := got[0]["error"].(string)
	require.True(t, ok)
	assert.Contains(t, errMsg, "Invalid JSON")
	assert.Equal(t, StateOpen, d.ConnState("cA"))

	// 同一连接随后仍可正常发送
	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))
	member, _ := d.rooms.IsMember(ctx, "r1", "A")
	assert.True(t, member)
}

// TestSanitizedContentBroadcast 广播使用净化后的内容
func TestSanitizedContentBroadcast(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)
	open(t, d, "cA", "A")
	open(t, d, "cC", "C")

	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))
	d.HandleFrame(ctx, "cC", frame(t, "join_room", "hi", "r1"))

	d.HandleFrame(ctx, "cA", frame(t, "message", `<b>hi</b>`, "r1"))

	got := transport.payloads(t, "cC")
	require.Len(t, got, 2)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", got[1]["content"])
}

// TestCloseCleansUp 断连解除绑定并自动离开全部房间
func TestCloseCleansUp(t *testing.T) {
	ctx := context.Background()
	d, _ := testDispatcher(t)
	open(t, d, "cA", "A")

	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r1"))
	d.HandleFrame(ctx, "cA", frame(t, "join_room", "hi", "r2"))

	d.HandleClose(ctx, "cA")

	_, bound, _ := d.registry.Lookup(ctx, "cA")
	assert.False(t, bound)

	for _, roomID := range []string{"r1", "r2"} {
		member, _ := d.rooms.IsMember(ctx, roomID, "A")
		assert.False(t, member, fmt.Sprintf("expected A to be removed from %s", roomID))
	}
}

// TestUnauthenticatedFrame 未绑定身份的连接发帧是防御性错误
func TestUnauthenticatedFrame(t *testing.T) {
	ctx := context.Background()
	d, transport := testDispatcher(t)

	d.HandleFrame(ctx, "ghost", frame(t, "join_room", "hi", "r1"))

	got := transport.payloads(t, "ghost")
	require.Len(t, got, 1)
	assert.Equal(t, ErrNotAuthenticated.Error(), got[0]["error"])
}

// TestCachedTokenSkipsReverification 第二条连接用同一令牌不再触发校验
func TestCachedTokenSkipsReverification(t *testing.T) {
	ctx := context.Background()

	verifier := &countingStubVerifier{}
	transport := newFakeTransport()
	d := NewDispatcher(
		testAppID,
		auth.NewGateway(verifier, auth.NewTokenCache(time.Minute)),
		message.NewValidator(),
		room.NewMemoryManager(),
		registry.NewMemoryRegistry(),
		transport,
		nil,
	)

	require.NoError(t, d.HandleOpen(ctx, "c1", "10.0.0.1:1", openHeaders("alice")))
	require.NoError(t, d.HandleOpen(ctx, "c2", "10.0.0.1:2", openHeaders("bob")))

	assert.Equal(t, 1, verifier.calls)
}

// countingStubVerifier 统计调用次数的桩
type countingStubVerifier struct {
	calls int
}

func (v *countingStubVerifier) Verify(token string) (*auth.Claims, error) {
	v.calls++
	if token != "good-token" {
		return nil, errors.New("bad token")
	}
	return &auth.Claims{}, nil
}
