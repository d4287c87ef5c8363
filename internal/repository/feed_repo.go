package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/inbox/pkg/constant"
	"github.com/redis/go-redis/v9"
)

// FeedRepo publishes row changes to per-user Redis pub/sub channels.
// Redis keeps publish order per connection, so each row's changes stay ordered.
type FeedRepo struct {
	rdb *redis.Client
}

// NewFeedRepo creates a new FeedRepo
func NewFeedRepo(rdb *redis.Client) *FeedRepo {
	return &FeedRepo{rdb: rdb}
}

// FeedChannel returns the channel carrying a user's changes
func FeedChannel(userId string) string {
	return fmt.Sprintf(constant.RedisKeyFeed(), userId)
}

// UserIdFromChannel extracts the user Id from a feed channel name
func UserIdFromChannel(channel string) (string, bool) {
	prefix := strings.TrimSuffix(constant.RedisKeyFeedPattern(), "*")
	if !strings.HasPrefix(channel, prefix) || len(channel) == len(prefix) {
		return "", false
	}
	return channel[len(prefix):], true
}

// Publish sends one change to every user in userIds
func (r *FeedRepo) Publish(ctx context.Context, userIds []string, change chatsync.RawChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return err
	}

	pipe := r.rdb.Pipeline()
	for _, userId := range userIds {
		pipe.Publish(ctx, FeedChannel(userId), payload)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe listens to the feeds of all users
func (r *FeedRepo) Subscribe(ctx context.Context) *redis.PubSub {
	return r.rdb.PSubscribe(ctx, constant.RedisKeyFeedPattern())
}
