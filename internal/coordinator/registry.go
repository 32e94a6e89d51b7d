package coordinator

// registry tracks pending operations by server-issued job id. It is not
// safe for concurrent use on its own; the coordinator guards it together
// with the scheduler state under one mutex.
type registry struct {
	pending map[string]*Pending
}

func newRegistry() *registry {
	return &registry{pending: make(map[string]*Pending)}
}

// add registers a handle under id. At most one entry exists per id; the
// server never reuses an id while it is still pending.
func (r *registry) add(id string, p *Pending) {
	r.pending[id] = p
}

// take removes and returns the handle for id, or nil if the id is unknown
// (already completed by an earlier batch, or never tracked here).
func (r *registry) take(id string) *Pending {
	p, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return p
}

func (r *registry) ids() []string {
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	return ids
}

func (r *registry) size() int { return len(r.pending) }
