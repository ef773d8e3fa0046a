package server

import "sync"

// connTable maps connection ids to live records. All access goes through
// the table's own lock; iteration snapshots under the lock and calls the
// visitor without it, so user code can never run while the lock is held.
type connTable struct {
	mu    sync.Mutex
	conns map[int]*conn
	maxID int
}

func newConnTable() *connTable {
	return &connTable{conns: make(map[int]*conn)}
}

func (t *connTable) Insert(c *conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conns[c.id] = c
	if c.id > t.maxID {
		t.maxID = c.id
	}
}

func (t *connTable) Erase(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, id)
}

func (t *connTable) Contains(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[id]
	return ok
}

func (t *connTable) Get(id int) (*conn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[id]
	return c, ok
}

func (t *connTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// MaxID reports the highest id ever inserted.
func (t *connTable) MaxID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxID
}

// ForEach visits a snapshot of the table. fn runs without the lock.
func (t *connTable) ForEach(fn func(*conn)) {
	t.mu.Lock()
	snapshot := make([]*conn, 0, len(t.conns))
	for _, c := range t.conns {
		snapshot = append(snapshot, c)
	}
	t.mu.Unlock()

	for _, c := range snapshot {
		fn(c)
	}
}

// Cleanup removes every record matching pred and returns the removed
// records so the caller can release their sockets.
func (t *connTable) Cleanup(pred func(*conn) bool) []*conn {
	t.mu.Lock()
	snapshot := make([]*conn, 0, len(t.conns))
	for _, c := range t.conns {
		snapshot = append(snapshot, c)
	}
	t.mu.Unlock()

	var removed []*conn
	for _, c := range snapshot {
		if pred(c) {
			t.mu.Lock()
			delete(t.conns, c.id)
			t.mu.Unlock()
			removed = append(removed, c)
		}
	}
	return removed
}
