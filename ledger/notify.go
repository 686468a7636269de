package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types emitted after every ledger mutation.
const (
	EventSpinRecorded   = "spin-recorded"
	EventTryAgainMarked = "try-again-marked"
	EventTryAgainUsed   = "try-again-used"
)

// Event is the payload broadcast to live sessions watching an identity. It
// is a UI-refresh hint, at-most-once; the authoritative answer is always a
// fresh store call.
type Event struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	PhoneNumber string `json:"phone_number"`
	DeviceID    string `json:"device_id"`
	Timestamp   int64  `json:"timestamp"`
}

// Matches reports whether the event concerns the given identity, using the
// same phone-OR-device rule the store matches on.
func (e Event) Matches(id Identity) bool {
	return e.PhoneNumber == id.PhoneNumber || e.DeviceID == id.DeviceID
}

// EventSink receives ledger mutation events. Publishing is best-effort and
// must never block or fail a spin.
type EventSink interface {
	Publish(Event)
}

const eventChannel = "spin:events"

// Broadcaster fans ledger events out over a Redis pub/sub channel so every
// replica can reach its connected sessions.
type Broadcaster struct {
	rdb *redis.Client
	log *zap.SugaredLogger
}

func NewBroadcaster(rdb *redis.Client, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{rdb: rdb, log: log}
}

// Publish sends the event to the shared channel. Failures are logged and
// swallowed; correctness never depends on delivery.
func (b *Broadcaster) Publish(e Event) {
	if b.rdb == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(ctx, eventChannel, payload).Err(); err != nil {
		b.log.Warnw("event publish failed", "type", e.Type, "err", err)
	}
}

// Subscribe returns a channel of decoded events. The channel closes when ctx
// is cancelled or the subscription drops.
func (b *Broadcaster) Subscribe(ctx context.Context) <-chan Event {
	out := make(chan Event, 16)
	if b.rdb == nil {
		close(out)
		return out
	}
	sub := b.rdb.Subscribe(ctx, eventChannel)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var e Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					b.log.Debugw("dropping malformed event payload", "err", err)
					continue
				}
				select {
				case out <- e:
				default:
					// slow consumer, drop rather than block the feed
				}
			}
		}
	}()
	return out
}
