package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sim-ashish/chat-service/internal/authz"
	"github.com/sim-ashish/chat-service/internal/errs"
	"github.com/sim-ashish/chat-service/internal/model"
	"github.com/sim-ashish/chat-service/internal/service"
	"go.uber.org/zap"
)

const closeWriteTimeout = 5 * time.Second

// ChatWSHandler handles WebSocket connections for /ws/group/:group_id.
type ChatWSHandler struct {
	hub     service.RoomHubForHandler
	history service.History
	auth    authz.GroupAuthorizer
	logger  *zap.Logger
}

// NewChatWSHandler creates the group chat WebSocket handler.
func NewChatWSHandler(hub service.RoomHubForHandler, history service.History, auth authz.GroupAuthorizer, logger *zap.Logger) *ChatWSHandler {
	return &ChatWSHandler{hub: hub, history: history, auth: auth, logger: logger}
}

// ServeWS upgrades the request and runs the chat session for one connection.
// Path: /ws/group/:group_id. The bearer token comes from the "token" query
// parameter or the Authorization header; membership is verified once, at
// connect time.
func (h *ChatWSHandler) ServeWS(c *gin.Context) {
	groupID, err := strconv.ParseInt(c.Param("group_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id must be an integer"})
		return
	}

	token := c.Query("token")
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}

	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if token == "" {
		h.closePolicyViolation(conn, errs.ErrTokenRequired.Error())
		return
	}

	userEmail, err := h.auth.VerifyGroupAccess(c.Request.Context(), token, groupID)
	if err != nil {
		h.closePolicyViolation(conn, authCloseReason(err))
		return
	}

	peer, cleanup := h.hub.Register(groupID, userEmail, conn)

	h.sendPlaybackSnapshot(peer)

	// Writer goroutine: send from peer.Send to connection
	go h.writePump(peer)

	// Reader: process frames until the client goes away
	h.readLoop(c.Request.Context(), peer)

	// Release room membership first, then tell the remaining members.
	cleanup()
	h.hub.Broadcast(groupID, model.UserLeftFrame{
		Type:    "user_left",
		Message: fmt.Sprintf("User disconnected from group %d", groupID),
	})
}

// sendPlaybackSnapshot delivers the room's current playback state to a newly
// joined peer only; nothing is sent when no video is set.
func (h *ChatWSHandler) sendPlaybackSnapshot(peer *service.Peer) {
	state, ok := h.hub.Playback(peer.GroupID)
	if !ok || state.VideoName == "" {
		return
	}
	h.hub.SendTo(peer, model.VideoSyncFrame{
		Type:      "video_sync",
		VideoName: state.VideoName,
		VideoTime: state.VideoTime,
		IsPlaying: state.IsPlaying,
		Message:   "Syncing with current video playback",
	})
	h.logger.Info("sent video sync",
		zap.Int64("group_id", peer.GroupID),
		zap.String("user", peer.UserEmail),
		zap.String("video_name", state.VideoName),
		zap.Float64("video_time", state.VideoTime))
}

func (h *ChatWSHandler) readLoop(ctx context.Context, peer *service.Peer) {
	for {
		_, raw, err := peer.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.String("user", peer.UserEmail), zap.Error(err))
			}
			return
		}
		h.handleFrame(ctx, peer, raw)
	}
}

// handleFrame processes one inbound frame. A frame that fails to decode is
// logged and skipped; the connection stays up.
func (h *ChatWSHandler) handleFrame(ctx context.Context, peer *service.Peer, raw []byte) {
	var frame model.InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.logger.Warn("malformed frame skipped",
			zap.Int64("group_id", peer.GroupID),
			zap.String("user", peer.UserEmail),
			zap.Error(err))
		return
	}

	if frame.GroupID == 0 {
		frame.GroupID = peer.GroupID
	}
	// Clients cannot spoof the author.
	frame.User = peer.UserEmail

	if frame.Type == model.TypeVideoControl {
		h.handleVideoControl(peer, frame)
		return
	}
	h.handleChatMessage(ctx, peer, frame)
}

// handleVideoControl mutates the room playback state and broadcasts the
// control echo. Control frames are ephemeral: never persisted.
func (h *ChatWSHandler) handleVideoControl(peer *service.Peer, frame model.InboundFrame) {
	h.hub.UpdatePlayback(peer.GroupID, frame.VideoAction, frame.VideoName, frame.VideoTime)

	h.hub.Broadcast(peer.GroupID, model.VideoControlFrame{
		Type:        "video_control",
		User:        peer.UserEmail,
		GroupID:     peer.GroupID,
		VideoAction: frame.VideoAction,
		VideoName:   frame.VideoName,
		VideoTime:   frame.VideoTime,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	h.logger.Info("video control broadcast",
		zap.Int64("group_id", peer.GroupID),
		zap.String("user", peer.UserEmail),
		zap.String("video_action", string(frame.VideoAction)))
}

// handleChatMessage persists the message and, only after a durable write,
// broadcasts the stored record to the room. On a failed write nothing is
// broadcast; the sender gets a personal error frame instead.
func (h *ChatWSHandler) handleChatMessage(ctx context.Context, peer *service.Peer, frame model.InboundFrame) {
	frame.Type = model.TypeMessage
	if frame.Text == "" {
		h.logger.Warn("chat frame without text skipped",
			zap.Int64("group_id", peer.GroupID),
			zap.String("user", peer.UserEmail))
		h.hub.SendTo(peer, model.ErrorFrame{Type: "error", Message: errs.ErrMessageTextMissing.Error()})
		return
	}

	saved, err := h.history.Append(ctx, model.Message{
		Text:    frame.Text,
		User:    peer.UserEmail,
		GroupID: frame.GroupID,
		Type:    model.TypeMessage,
	})
	if err != nil {
		h.logger.Error("message append failed, not broadcast",
			zap.Int64("group_id", peer.GroupID),
			zap.String("user", peer.UserEmail),
			zap.Error(err))
		h.hub.SendTo(peer, model.ErrorFrame{Type: "error", Message: "message could not be delivered"})
		return
	}

	h.hub.Broadcast(peer.GroupID, saved)
}

func (h *ChatWSHandler) writePump(peer *service.Peer) {
	defer func() {
		_ = peer.Conn.Close()
	}()
	for data := range peer.Send {
		if err := peer.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
}

// closePolicyViolation sends a 1008 close frame with a human-readable reason.
func (h *ChatWSHandler) closePolicyViolation(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
	h.logger.Info("connection rejected", zap.String("reason", reason))
}

func authCloseReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotGroupMember):
		return errs.ErrNotGroupMember.Error()
	case errors.Is(err, errs.ErrAuthUnavailable):
		return errs.ErrAuthUnavailable.Error()
	default:
		return errs.ErrAuthFailed.Error()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
