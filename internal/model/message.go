package model

import "time"

// MessageType classifies chat records and inbound frames.
type MessageType string

const (
	TypeMessage       MessageType = "message"       // regular chat message
	TypeMemberAdded   MessageType = "add"           // system: user added to group
	TypeMemberRemoved MessageType = "leave"         // system: user removed from group
	TypeVideoControl  MessageType = "video_control" // ephemeral playback control, never persisted
)

// VideoAction is a playback control verb.
type VideoAction string

const (
	ActionPlay        VideoAction = "play"
	ActionPause       VideoAction = "pause"
	ActionSeek        VideoAction = "seek"
	ActionChangeVideo VideoAction = "change_video"
)

// SystemUser is the author of membership notification messages.
const SystemUser = "system"

// Message is the API view of a persisted chat record (not GORM entity).
type Message struct {
	ID        string      `json:"_id"`
	Text      string      `json:"text"`
	User      string      `json:"user"`
	GroupID   int64       `json:"group_id"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// InboundFrame is a client->server WebSocket frame.
// user is always overwritten with the authenticated identity; group_id
// defaults to the group the connection joined. Video fields are pointers so
// an omitted value is distinguishable from an explicit zero.
type InboundFrame struct {
	Text    string      `json:"text"`
	User    string      `json:"user"`
	GroupID int64       `json:"group_id"`
	Type    MessageType `json:"type"`

	VideoAction VideoAction `json:"video_action,omitempty"`
	VideoName   *string     `json:"video_name,omitempty"`
	VideoTime   *float64    `json:"video_time,omitempty"`
}

// VideoSyncFrame is the one-shot playback snapshot sent to a joining client.
type VideoSyncFrame struct {
	Type      string  `json:"type"` // "video_sync"
	VideoName string  `json:"video_name"`
	VideoTime float64 `json:"video_time"`
	IsPlaying bool    `json:"is_playing"`
	Message   string  `json:"message"`
}

// VideoControlFrame is the ephemeral broadcast echo of a playback control.
type VideoControlFrame struct {
	Type        string      `json:"type"` // "video_control"
	User        string      `json:"user"`
	GroupID     int64       `json:"group_id"`
	VideoAction VideoAction `json:"video_action"`
	VideoName   *string     `json:"video_name"`
	VideoTime   *float64    `json:"video_time"`
	Timestamp   string      `json:"timestamp"`
}

// UserLeftFrame is the transient notice broadcast when a member disconnects.
type UserLeftFrame struct {
	Type    string `json:"type"` // "user_left"
	Message string `json:"message"`
}

// ErrorFrame is sent to a single client when its message could not be delivered.
type ErrorFrame struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// MembershipEvent is the Redis payload published by the auth service when a
// user is added to or removed from a group.
type MembershipEvent struct {
	Type      MessageType `json:"type"` // "add" or "leave"
	GroupID   int64       `json:"group_id"`
	Text      string      `json:"text"`
	UserEmail string      `json:"user_email"`
	Actor     string      `json:"actor,omitempty"`
}

// MessagesResponse is the response envelope for GET /messages.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
}
