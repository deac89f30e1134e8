package service

import (
	"time"

	"github.com/sim-ashish/chat-service/internal/model"
)

// PlaybackState is the shared playback view for one room: what is playing,
// where, and whether it is paused. Authoritative only while the room has at
// least one viewer; it is dropped with the room.
type PlaybackState struct {
	VideoName   string
	VideoTime   float64
	IsPlaying   bool
	LastUpdated time.Time
}

// ApplyPlaybackAction returns the playback state after applying a control
// action. cur == nil means the room has no state yet. Pure except for the
// LastUpdated stamp; position and play state are last-writer-wins.
//
//	play:         is_playing=true; update time/name when provided
//	pause:        is_playing=false; update time when provided
//	seek:         update time when provided; play state untouched
//	change_video: set name, reset time to provided value or 0, keep play state
//
// An unrecognized action leaves the state untouched rather than failing the
// connection.
func ApplyPlaybackAction(cur *PlaybackState, action model.VideoAction, videoName *string, videoTime *float64) PlaybackState {
	var next PlaybackState
	if cur != nil {
		next = *cur
	}

	switch action {
	case model.ActionPlay:
		next.IsPlaying = true
		if videoTime != nil {
			next.VideoTime = *videoTime
		}
		if videoName != nil && *videoName != "" {
			next.VideoName = *videoName
		}
	case model.ActionPause:
		next.IsPlaying = false
		if videoTime != nil {
			next.VideoTime = *videoTime
		}
	case model.ActionSeek:
		if videoTime != nil {
			next.VideoTime = *videoTime
		}
	case model.ActionChangeVideo:
		if videoName != nil {
			next.VideoName = *videoName
		}
		if videoTime != nil {
			next.VideoTime = *videoTime
		} else {
			next.VideoTime = 0
		}
	default:
		return next
	}

	next.LastUpdated = time.Now().UTC()
	return next
}
