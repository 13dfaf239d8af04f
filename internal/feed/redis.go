// Package feed republishes bus events to Redis pub/sub so external
// consumers (dashboards, downstream bots) can follow the scanner live.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/betsnipe/betsnipe/internal/events"
)

const channelPrefix = "betsnipe:"

const publishTimeout = 5 * time.Second

// RedisFeed mirrors every bus event onto Redis channels. Channel names are
// the bus tags with a namespace prefix: betsnipe:all, betsnipe:arbitrage,
// betsnipe:match:<id>, betsnipe:sport:<id>.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed connects and pings; a feed that cannot reach Redis at boot
// is a config error, not something to limp along with.
func NewRedisFeed(ctx context.Context, addr, password string, db int) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	slog.Info("redis feed connected", "addr", addr, "db", db)
	return &RedisFeed{client: client}, nil
}

// SubscribeTo wires the feed to the firehose channel of the bus. Returns
// the unsubscribe func.
func (f *RedisFeed) SubscribeTo(bus *events.Bus) func() {
	return bus.Subscribe("all", f.Publish)
}

// Publish serializes the event once and fans it out to every channel tag it
// maps to. Publish failures are logged and swallowed: the feed is a mirror,
// never a reason to stall the cycle.
func (f *RedisFeed) Publish(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode feed event", "type", event.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	for _, channel := range event.Channels() {
		if err := f.client.Publish(ctx, channelPrefix+channel, payload).Err(); err != nil {
			slog.Warn("redis publish failed", "channel", channel, "error", err)
			return
		}
	}
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
