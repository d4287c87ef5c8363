package gateway

import "sync"

// connIndex maps users to the sockets they hold on this instance. The feed
// loop consults it to skip users connected elsewhere.
type connIndex struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client // userId -> connId -> client
	total  int
}

func newConnIndex() *connIndex {
	return &connIndex{byUser: make(map[string]map[string]*Client)}
}

// add records c and reports whether it is the user's first connection
func (x *connIndex) add(c *Client) (first bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	conns, ok := x.byUser[c.UserId]
	if !ok {
		conns = make(map[string]*Client, 2)
		x.byUser[c.UserId] = conns
	}
	if _, dup := conns[c.ConnId]; !dup {
		conns[c.ConnId] = c
		x.total++
	}
	return !ok
}

// remove forgets c. removed is false for an unknown connection; last is
// true when the user has no connection left.
func (x *connIndex) remove(c *Client) (removed, last bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	conns, ok := x.byUser[c.UserId]
	if !ok {
		return false, false
	}
	if _, ok := conns[c.ConnId]; !ok {
		return false, false
	}
	delete(conns, c.ConnId)
	x.total--
	if len(conns) == 0 {
		delete(x.byUser, c.UserId)
		return true, true
	}
	return true, false
}

// clients returns a snapshot of the user's connections
func (x *connIndex) clients(userId string) []*Client {
	x.mu.RLock()
	defer x.mu.RUnlock()

	conns := x.byUser[userId]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

func (x *connIndex) has(userId string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byUser[userId]) > 0
}

// counts returns the number of connected users and sockets
func (x *connIndex) counts() (users, conns int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byUser), x.total
}
