package game

import (
	"sync"
	"time"

	"rps_challenge/internal/domain"

	"github.com/google/uuid"
)

// Challenge describes a new invitation.
type Challenge struct {
	Challenger domain.Participant
	Challenged domain.Participant
	Rounds     int
	Chat       domain.ChatRef
	RematchOf  string
}

func (c Challenge) validate() error {
	if c.Challenger.ID == c.Challenged.ID {
		return ErrSelfChallenge
	}
	if c.Rounds < domain.MinRounds || c.Rounds > domain.MaxRounds {
		return ErrInvalidRoundCount
	}
	return nil
}

// pairKey is order independent: (a,b) and (b,a) collide.
type pairKey struct {
	lo, hi int64
}

func keyFor(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

type retiredMatch struct {
	match     *Match
	retiredAt time.Time
}

// Registry is the table of pending and active matches. At most one match per
// unordered pair lives in it. Finished matches are kept aside as read-only
// tombstones until PruneRetired drops them.
type Registry struct {
	mu      sync.Mutex
	byID    map[string]*Match
	byPair  map[pairKey]string
	retired map[string]retiredMatch
	newID   func() string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]*Match),
		byPair:  make(map[pairKey]string),
		retired: make(map[string]retiredMatch),
		newID:   uuid.NewString,
	}
}

// Create validates and registers a pending match. Concurrent calls for the
// same pair are serialized by mu so only one of them wins.
func (r *Registry) Create(c Challenge, now time.Time, ttl time.Duration) (*Match, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	key := keyFor(c.Challenger.ID, c.Challenged.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.byPair[key]; busy {
		return nil, ErrAlreadyChallenged
	}
	m := newMatch(r.newID(), c, now, ttl)
	r.byID[m.ID()] = m
	r.byPair[key] = m.ID()
	return m, nil
}

// Get returns a pending or active match.
func (r *Registry) Get(id string) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	return m, ok
}

// Lookup also finds retired matches; live reports which table it came from.
func (r *Registry) Lookup(id string) (m *Match, live bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.byID[id]; ok {
		return m, true, true
	}
	if rm, ok := r.retired[id]; ok {
		return rm.match, false, true
	}
	return nil, false, false
}

// Remove takes the match out of the live table and frees its pair.
func (r *Registry) Remove(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	key := keyFor(m.state.Challenger.ID, m.state.Challenged.ID)
	if r.byPair[key] == id {
		delete(r.byPair, key)
	}
	r.retired[id] = retiredMatch{match: m, retiredAt: now}
}

// PruneRetired forgets tombstones retired before cutoff.
func (r *Registry) PruneRetired(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rm := range r.retired {
		if rm.retiredAt.Before(cutoff) {
			delete(r.retired, id)
			n++
		}
	}
	return n
}

// live returns the matches currently in the live table.
func (r *Registry) live() []*Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Match, 0, len(r.byID))
	for _, m := range r.byID {
		out = append(out, m)
	}
	return out
}

// Len is the number of live matches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
