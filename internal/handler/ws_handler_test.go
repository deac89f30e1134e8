package handler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sim-ashish/chat-service/internal/model"
	"github.com/sim-ashish/chat-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type broadcastCall struct {
	groupID int64
	payload any
}

type updateCall struct {
	groupID   int64
	action    model.VideoAction
	videoName *string
	videoTime *float64
}

type mockHub struct {
	mu          sync.Mutex
	broadcasts  []broadcastCall
	personal    []any
	updates     []updateCall
	playback    service.PlaybackState
	hasPlayback bool
}

func (m *mockHub) Register(groupID int64, userEmail string, conn *websocket.Conn) (*service.Peer, func()) {
	return &service.Peer{GroupID: groupID, UserEmail: userEmail, Conn: conn, Send: make(chan []byte, 8)}, func() {}
}

func (m *mockHub) Upgrader() *websocket.Upgrader { return &websocket.Upgrader{} }

func (m *mockHub) Broadcast(groupID int64, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, broadcastCall{groupID: groupID, payload: payload})
}

func (m *mockHub) SendTo(p *service.Peer, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personal = append(m.personal, payload)
}

func (m *mockHub) UpdatePlayback(groupID int64, action model.VideoAction, videoName *string, videoTime *float64) service.PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updateCall{groupID: groupID, action: action, videoName: videoName, videoTime: videoTime})
	m.playback = service.ApplyPlaybackAction(&m.playback, action, videoName, videoTime)
	m.hasPlayback = true
	return m.playback
}

func (m *mockHub) Playback(groupID int64) (service.PlaybackState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playback, m.hasPlayback
}

type mockHistory struct {
	mu       sync.Mutex
	appended []model.Message
	err      error
}

func (m *mockHistory) Append(ctx context.Context, msg model.Message) (model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Message{}, m.err
	}
	saved := msg
	saved.ID = "11111111-1111-1111-1111-111111111111"
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	m.appended = append(m.appended, saved)
	return saved, nil
}

func (m *mockHistory) List(ctx context.Context, limit int) ([]model.Message, error) {
	return nil, nil
}

func newTestHandler(hub *mockHub, history *mockHistory) *ChatWSHandler {
	return NewChatWSHandler(hub, history, nil, zap.NewNop())
}

func testPeer() *service.Peer {
	return &service.Peer{GroupID: 7, UserEmail: "a@x.com", Send: make(chan []byte, 8)}
}

func TestHandleFrame_ChatMessagePersistsThenBroadcasts(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte(`{"text":"hi","type":"message"}`))

	require.Len(t, history.appended, 1)
	assert.Equal(t, model.TypeMessage, history.appended[0].Type)
	assert.Equal(t, int64(7), history.appended[0].GroupID)

	require.Len(t, hub.broadcasts, 1)
	assert.Equal(t, int64(7), hub.broadcasts[0].groupID)
	saved, ok := hub.broadcasts[0].payload.(model.Message)
	require.True(t, ok)
	assert.Equal(t, "hi", saved.Text)
	assert.NotEmpty(t, saved.ID)
}

func TestHandleFrame_AuthorCannotBeSpoofed(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte(`{"text":"hi","user":"evil@x.com"}`))

	require.Len(t, history.appended, 1)
	assert.Equal(t, "a@x.com", history.appended[0].User)

	require.Len(t, hub.broadcasts, 1)
	saved := hub.broadcasts[0].payload.(model.Message)
	assert.Equal(t, "a@x.com", saved.User)
}

func TestHandleFrame_ClientTypeForcedToMessage(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte(`{"text":"hi","type":"add"}`))

	require.Len(t, history.appended, 1)
	assert.Equal(t, model.TypeMessage, history.appended[0].Type)
}

func TestHandleFrame_PersistFailureNotBroadcast(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{err: errors.New("db down")}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte(`{"text":"hi"}`))

	assert.Empty(t, hub.broadcasts, "undurable message must not reach the room")

	// Sender is told about the drop.
	require.Len(t, hub.personal, 1)
	errFrame, ok := hub.personal[0].(model.ErrorFrame)
	require.True(t, ok)
	assert.Equal(t, "error", errFrame.Type)
}

func TestHandleFrame_VideoControl(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer,
		[]byte(`{"type":"video_control","video_action":"change_video","video_name":"intro.mp4"}`))

	// Ephemeral: never persisted.
	assert.Empty(t, history.appended)

	require.Len(t, hub.updates, 1)
	assert.Equal(t, model.ActionChangeVideo, hub.updates[0].action)
	require.NotNil(t, hub.updates[0].videoName)
	assert.Equal(t, "intro.mp4", *hub.updates[0].videoName)
	assert.Nil(t, hub.updates[0].videoTime)

	require.Len(t, hub.broadcasts, 1)
	echo, ok := hub.broadcasts[0].payload.(model.VideoControlFrame)
	require.True(t, ok)
	assert.Equal(t, "video_control", echo.Type)
	assert.Equal(t, "a@x.com", echo.User)
	assert.Equal(t, model.ActionChangeVideo, echo.VideoAction)
}

func TestHandleFrame_MalformedJSONSkipped(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte("not json"))

	assert.Empty(t, history.appended)
	assert.Empty(t, hub.broadcasts)
	assert.Empty(t, hub.personal)
}

func TestHandleFrame_EmptyTextRejected(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	h.handleFrame(context.Background(), peer, []byte(`{"type":"message"}`))

	assert.Empty(t, history.appended)
	assert.Empty(t, hub.broadcasts)
	require.Len(t, hub.personal, 1)
}

func TestSendPlaybackSnapshot(t *testing.T) {
	hub := &mockHub{}
	history := &mockHistory{}
	h := newTestHandler(hub, history)
	peer := testPeer()

	// No state yet: nothing sent.
	h.sendPlaybackSnapshot(peer)
	assert.Empty(t, hub.personal)

	name := "intro.mp4"
	hub.UpdatePlayback(7, model.ActionChangeVideo, &name, nil)
	hub.mu.Lock()
	hub.broadcasts = nil
	hub.mu.Unlock()

	h.sendPlaybackSnapshot(peer)

	require.Len(t, hub.personal, 1)
	snapshot, ok := hub.personal[0].(model.VideoSyncFrame)
	require.True(t, ok)
	assert.Equal(t, "video_sync", snapshot.Type)
	assert.Equal(t, "intro.mp4", snapshot.VideoName)
	assert.Equal(t, 0.0, snapshot.VideoTime)
	assert.False(t, snapshot.IsPlaying)
	assert.Empty(t, hub.broadcasts, "snapshot goes to the joining peer only")
}
