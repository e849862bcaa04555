package channel

import (
	"crypto/rand"
	"sync"
)

// state is everything owned by one channel, guarded by its own mutex so
// unrelated channels never contend.
type state struct {
	mu           sync.Mutex
	channel      Channel
	participants map[string]*Participant
	locations    map[string]*SharedLocation
	messages     []*Message
	nextSeq      int64
}

type registry struct {
	mu     sync.RWMutex
	byID   map[string]*state
	byCode map[string]*state
}

func newRegistry() *registry {
	return &registry{
		byID:   map[string]*state{},
		byCode: map[string]*state{},
	}
}

func (r *registry) add(st *state) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[st.channel.ID] = st
	r.byCode[st.channel.Code] = st
}

func (r *registry) lookupID(id string) (*state, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byID[id]
	return st, ok
}

func (r *registry) lookupCode(code string) (*state, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.byCode[code]
	return st, ok
}

func (r *registry) codeTaken(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byCode[code]
	return ok
}

func (r *registry) all() []*state {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make([]*state, 0, len(r.byID))
	for _, st := range r.byID {
		states = append(states, st)
	}
	return states
}

func (r *registry) remove(id, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	delete(r.byCode, code)
}

// codeAlphabet omits easily-confused characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func newChannelCode() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
