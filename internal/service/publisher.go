package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/pkg/chatsync"
)

// ChangePublisher fans a row change out to the feeds of the given users
type ChangePublisher interface {
	Publish(ctx context.Context, userIds []string, change chatsync.RawChange) error
}

// feed wraps a ChangePublisher. Publishing happens after the row is durable,
// so a failure is logged and left to the clients' next pull.
type feed struct {
	pub     ChangePublisher
	timeout time.Duration
}

func (f *feed) publish(ctx context.Context, userIds []string, kind chatsync.EntityKind, op chatsync.Operation, row any) {
	if f == nil || f.pub == nil || len(userIds) == 0 {
		return
	}

	b, err := json.Marshal(row)
	if err != nil {
		log.CtxError(ctx, "marshal change failed: kind=%s, error=%v", kind, err)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()
	if err := f.pub.Publish(pctx, userIds, chatsync.RawChange{EntityKind: kind, Operation: op, Row: b}); err != nil {
		log.CtxWarn(ctx, "publish change failed: kind=%s, op=%s, users=%d, error=%v", kind, op, len(userIds), err)
	}
}
