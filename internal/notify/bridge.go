// Package notify bridges group membership events published on Redis by the
// auth service into the live chat rooms of this process.
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sim-ashish/chat-service/internal/model"
	"github.com/sim-ashish/chat-service/internal/service"
	"go.uber.org/zap"
)

// Redis channels the auth service publishes membership changes on.
const (
	ChannelMemberAdded   = "added_to_group"
	ChannelMemberRemoved = "remove_from_group"
)

// Broadcaster delivers a payload to every live connection of a group.
type Broadcaster interface {
	Broadcast(groupID int64, payload any)
}

// Bridge is the long-lived subscriber that turns membership events into
// persisted system messages and broadcasts them into the affected room.
type Bridge struct {
	rdb     *redis.Client
	history service.History
	hub     Broadcaster
	log     *zap.Logger
}

// NewBridge creates the notification bridge.
func NewBridge(rdb *redis.Client, history service.History, hub Broadcaster, log *zap.Logger) *Bridge {
	return &Bridge{rdb: rdb, history: history, hub: hub, log: log}
}

// Run subscribes to the membership channels and processes events until ctx is
// cancelled. Malformed payloads and store failures are logged and skipped;
// they never terminate the subscriber.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, ChannelMemberAdded, ChannelMemberRemoved)
	defer sub.Close()

	b.log.Info("notification bridge subscribed",
		zap.Strings("channels", []string{ChannelMemberAdded, ChannelMemberRemoved}))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("notification bridge stopping")
			return
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn("notification bridge channel closed")
				return
			}
			b.HandleEvent(ctx, []byte(msg.Payload))
		}
	}
}

// HandleEvent persists one membership event as a system message and
// broadcasts the persisted record to the event's group.
func (b *Bridge) HandleEvent(ctx context.Context, payload []byte) {
	var ev model.MembershipEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		b.log.Warn("membership event decode failed", zap.Error(err))
		return
	}
	if ev.Type != model.TypeMemberAdded && ev.Type != model.TypeMemberRemoved {
		b.log.Warn("membership event with unknown type skipped", zap.String("type", string(ev.Type)))
		return
	}
	if ev.GroupID == 0 || ev.Text == "" {
		b.log.Warn("membership event missing group_id or text skipped",
			zap.Int64("group_id", ev.GroupID))
		return
	}

	msg := model.Message{
		Text:    ev.Text,
		User:    model.SystemUser,
		GroupID: ev.GroupID,
		Type:    ev.Type,
	}
	saved, err := b.history.Append(ctx, msg)
	if err != nil {
		// Not broadcast: viewers never see a record that isn't durable.
		b.log.Error("membership message append failed",
			zap.Int64("group_id", ev.GroupID), zap.Error(err))
		return
	}

	b.hub.Broadcast(ev.GroupID, saved)
	b.log.Info("membership notification broadcast",
		zap.Int64("group_id", ev.GroupID),
		zap.String("type", string(ev.Type)))
}
