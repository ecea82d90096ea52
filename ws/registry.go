package ws

import "sync"

// Registry indexes live connections by id, by owning user and by order
// topic. Lock order is registry then connection.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Connection
	byUser  map[string]map[string]*Connection
	byOrder map[string]map[string]*Connection
}

type RegistryStats struct {
	Connections      int `json:"connections"`
	Authenticated    int `json:"authenticated"`
	Users            int `json:"users"`
	OrderTopics      int `json:"order_topics"`
	NotificationSubs int `json:"notification_subscriptions"`
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Connection),
		byUser:  make(map[string]map[string]*Connection),
		byOrder: make(map[string]map[string]*Connection),
	}
}

func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.ID] = c
}

// Remove drops c from every index. It reports false if c was already gone.
func (r *Registry) Remove(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; !ok {
		return false
	}
	delete(r.conns, c.ID)

	c.mu.Lock()
	userID := c.userID
	orders := make([]string, 0, len(c.orders))
	for id := range c.orders {
		orders = append(orders, id)
	}
	c.mu.Unlock()

	if userID != "" {
		removeFromIndex(r.byUser, userID, c.ID)
	}
	for _, orderID := range orders {
		removeFromIndex(r.byOrder, orderID, c.ID)
	}
	return true
}

// bind attaches c to userID. It reports false if c was already
// authenticated or has been removed.
func (r *Registry) bind(c *Connection, id Identity, ack []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.ID]; !ok {
		return false, ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return false, nil
	}
	if err := c.enqueueLocked(ack); err != nil {
		return false, err
	}
	c.userID = id.UserID
	c.role = id.Role
	c.authenticated = true
	addToIndex(r.byUser, id.UserID, c)
	return true, nil
}

func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

// UserConnections returns a snapshot of userID's authenticated connections.
func (r *Registry) UserConnections(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[userID])
}

// OrderConnections returns a snapshot of connections subscribed to orderID.
func (r *Registry) OrderConnections(orderID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byOrder[orderID])
}

func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.conns)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		Connections: len(r.conns),
		Users:       len(r.byUser),
		OrderTopics: len(r.byOrder),
	}
	for _, c := range r.conns {
		c.mu.Lock()
		if c.authenticated {
			stats.Authenticated++
		}
		if c.notifications {
			stats.NotificationSubs++
		}
		c.mu.Unlock()
	}
	return stats
}

func addToIndex(index map[string]map[string]*Connection, key string, c *Connection) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]*Connection)
		index[key] = set
	}
	set[c.ID] = c
}

func removeFromIndex(index map[string]map[string]*Connection, key, connID string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(index, key)
	}
}

func snapshot(set map[string]*Connection) []*Connection {
	out := make([]*Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}
