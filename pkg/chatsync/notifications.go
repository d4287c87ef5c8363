package chatsync

import "sort"

// Notifications aggregates the session user's system notifications
type Notifications struct {
	items  map[string]*Notification
	unread int
}

// NewNotifications creates an empty aggregator
func NewNotifications() *Notifications {
	return &Notifications{items: make(map[string]*Notification)}
}

// Upsert inserts or replaces a notification. Reports whether anything changed.
func (a *Notifications) Upsert(n *Notification) bool {
	cp := *n
	cur, ok := a.items[n.Id]
	if ok {
		if notificationVersion(n) < notificationVersion(cur) {
			return false
		}
		// a local read at the same version wins over a redelivered unread row
		if notificationVersion(n) == notificationVersion(cur) && cur.Read && !n.Read {
			return false
		}
		if !cur.Read {
			a.unread--
		}
	}
	a.items[n.Id] = &cp
	if !cp.Read {
		a.unread++
	}
	return !ok || !sameNotification(cur, &cp)
}

func sameNotification(a, b *Notification) bool {
	if a.Read != b.Read || a.Title != b.Title || a.Body != b.Body || a.Type != b.Type || a.UpdatedAt != b.UpdatedAt {
		return false
	}
	if len(a.Link) != len(b.Link) {
		return false
	}
	for k, v := range a.Link {
		if b.Link[k] != v {
			return false
		}
	}
	return true
}

// Replace swaps the whole set for a pull result
func (a *Notifications) Replace(list []*Notification) {
	a.items = make(map[string]*Notification, len(list))
	a.unread = 0
	for _, n := range list {
		a.Upsert(n)
	}
}

// MarkRead flips one notification to read. Reports whether it was unread.
func (a *Notifications) MarkRead(id string) bool {
	return a.setRead(id, true)
}

// MarkUnread restores the unread flag after a rejected write
func (a *Notifications) MarkUnread(id string) bool {
	return a.setRead(id, false)
}

func (a *Notifications) setRead(id string, read bool) bool {
	n, ok := a.items[id]
	if !ok || n.Read == read {
		return false
	}
	n.Read = read
	if read {
		a.unread--
	} else {
		a.unread++
	}
	return true
}

// Has reports whether id is known
func (a *Notifications) Has(id string) bool {
	_, ok := a.items[id]
	return ok
}

// UnreadIds returns the ids of all unread notifications
func (a *Notifications) UnreadIds() []string {
	ids := make([]string, 0, a.unread)
	for id, n := range a.items {
		if !n.Read {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clear removes every notification and returns what was removed
func (a *Notifications) Clear() []*Notification {
	out := a.List()
	a.items = make(map[string]*Notification)
	a.unread = 0
	return out
}

// Restore puts back notifications removed by Clear
func (a *Notifications) Restore(list []*Notification) {
	for _, n := range list {
		if _, ok := a.items[n.Id]; !ok {
			a.Upsert(n)
		}
	}
}

// List returns copies of all notifications, newest first
func (a *Notifications) List() []*Notification {
	out := make([]*Notification, 0, len(a.items))
	for _, n := range a.items {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].Id > out[j].Id
	})
	return out
}

// UnreadCount returns the number of unread notifications
func (a *Notifications) UnreadCount() int {
	return a.unread
}
