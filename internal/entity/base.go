package entity

import (
	"time"

	"github.com/mbeoliero/inbox/pkg/chatsync"
)

// NowUnixMilli returns current unix timestamp in milliseconds
func NowUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// GenParticipantKey builds the unique key of a participant set.
// Format: {min}|...|{max}, sorted and deduplicated
func GenParticipantKey(userIds []string) string {
	return chatsync.ParticipantKey(userIds)
}
