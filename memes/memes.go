// Package memes holds the in-memory meme registry and vote ledger.
//
// A single Store owns all state. Every mutation runs in one critical section:
// the current snapshot is cloned, the change is applied to the clone, the clone
// is persisted through the store.Backend, and only then does it replace the
// live state. A failed save therefore leaves memory untouched. No network call
// is ever made while the lock is held.
package memes

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/memebot/store"
	"github.com/onnwee/memebot/telemetry"
)

// Scope selects what a vote key identifies.
type Scope string

const (
	// ScopeUser keys votes by submitting user id (aggregate reputation).
	ScopeUser Scope = "user"
	// ScopeMeme keys votes by meme id (per-item popularity).
	ScopeMeme Scope = "meme"
)

// ParseScope parses VOTE_SCOPE values.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeUser:
		return ScopeUser, nil
	case ScopeMeme:
		return ScopeMeme, nil
	default:
		return "", fmt.Errorf("unknown vote scope %q (want user or meme)", s)
	}
}

// Tally is one ledger entry.
type Tally struct {
	Key   string
	Votes int
}

// Summary is a point-in-time count of the store contents.
type Summary struct {
	Users         int
	Memes         int
	CategoryMemes int
	VoteKeys      int
}

// Store is the owned meme registry and vote ledger.
type Store struct {
	mu      sync.Mutex
	backend store.Backend
	scope   Scope
	rnd     *rand.Rand

	state store.Snapshot
	// order holds vote keys in first-seen order; it breaks ties in Top.
	order []string
}

// Option configures a Store.
type Option func(*Store)

// WithScope sets the vote scope (default ScopeUser).
func WithScope(scope Scope) Option {
	return func(s *Store) { s.scope = scope }
}

// WithRand sets the random source used for draws.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rnd = r }
}

// Open loads state from backend. A corrupt document or vote keys that do not
// fit the scope are returned as errors so the caller can abort startup.
func Open(ctx context.Context, backend store.Backend, opts ...Option) (*Store, error) {
	s := &Store{backend: backend, scope: ScopeUser}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		now := uint64(time.Now().UnixNano())
		s.rnd = rand.New(rand.NewPCG(now, now>>1|1))
	}
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if err := checkScope(snap.Votes, s.scope); err != nil {
		return nil, err
	}
	s.state = snap
	s.order = make([]string, 0, len(snap.Votes))
	for k := range snap.Votes {
		s.order = append(s.order, k)
	}
	slices.Sort(s.order)
	slog.Info("meme store loaded",
		slog.Int("users", len(snap.UserMemes)),
		slog.Int("vote_keys", len(snap.Votes)),
		slog.String("vote_scope", string(s.scope)),
		slog.String("component", "memes"))
	return s, nil
}

func checkScope(votes map[string]int, scope Scope) error {
	for key := range votes {
		_, err := uuid.Parse(key)
		isID := err == nil
		if scope == ScopeMeme && !isID {
			return fmt.Errorf("%w: key %q is not a meme id but VOTE_SCOPE=meme; run resetvotes or switch VOTE_SCOPE", ErrScopeMismatch, key)
		}
		if scope == ScopeUser && isID {
			return fmt.Errorf("%w: key %q is a meme id but VOTE_SCOPE=user; run resetvotes or switch VOTE_SCOPE", ErrScopeMismatch, key)
		}
	}
	return nil
}

// Scope returns the configured vote scope.
func (s *Store) Scope() Scope { return s.scope }

// mutate applies fn to a copy of the state, persists it and swaps it in.
// Callers must hold s.mu.
func (s *Store) mutate(ctx context.Context, fn func(*store.Snapshot)) error {
	next := s.state.Clone()
	fn(&next)
	var err error
	telemetry.TimeFunc(telemetry.StoreSaveDuration, func() {
		err = s.backend.Save(ctx, next)
	})
	if err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	s.state = next
	return nil
}

func validateURL(url string) error {
	if !strings.HasPrefix(url, "http") {
		return &ValidationError{Field: "url", Value: url, Reason: "must start with http"}
	}
	return nil
}

// Add appends url to userID's submissions and persists.
func (s *Store) Add(ctx context.Context, userID, url string) error {
	url = strings.TrimSpace(url)
	if err := validateURL(url); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(st *store.Snapshot) {
		st.UserMemes[userID] = append(st.UserMemes[userID], url)
	})
}

// AddToCategory appends url to a predefined category bucket and persists.
func (s *Store) AddToCategory(ctx context.Context, category, url string) error {
	if !IsCategory(category) {
		return &UnknownCategoryError{Category: category}
	}
	url = strings.TrimSpace(url)
	if err := validateURL(url); err != nil {
		return err
	}
	category = NormalizeCategory(category)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(ctx, func(st *store.Snapshot) {
		st.CategoryMemes[category] = append(st.CategoryMemes[category], url)
	})
}

// ListForUser returns userID's submissions in submission order.
func (s *Store) ListForUser(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.state.UserMemes[userID]))
	copy(out, s.state.UserMemes[userID])
	return out
}

// userURLs returns every user-submitted URL, users in id order. Callers hold s.mu.
func (s *Store) userURLs() []string {
	users := make([]string, 0, len(s.state.UserMemes))
	for u := range s.state.UserMemes {
		users = append(users, u)
	}
	sortUserIDs(users)
	var out []string
	for _, u := range users {
		out = append(out, s.state.UserMemes[u]...)
	}
	return out
}

// RandomFromAll draws a URL uniformly from the category bucket plus all user
// submissions when category is known, otherwise from every bucket plus all
// user submissions.
func (s *Store) RandomFromAll(category string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pool []string
	if category != "" && IsCategory(category) {
		pool = append(pool, s.state.CategoryMemes[NormalizeCategory(category)]...)
	} else {
		for _, c := range Categories {
			pool = append(pool, s.state.CategoryMemes[c]...)
		}
	}
	pool = append(pool, s.userURLs()...)
	if len(pool) == 0 {
		return "", ErrEmptyPool
	}
	return pool[s.rnd.IntN(len(pool))], nil
}

// AllMemes lists user submissions flattened: users in id order, then
// submission order. The same URL submitted twice appears twice with one id.
func (s *Store) AllMemes() []Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allMemes()
}

func (s *Store) allMemes() []Meme {
	users := make([]string, 0, len(s.state.UserMemes))
	for u := range s.state.UserMemes {
		users = append(users, u)
	}
	sortUserIDs(users)
	var out []Meme
	for _, u := range users {
		for _, url := range s.state.UserMemes[u] {
			out = append(out, Meme{ID: IDFor(url), URL: url, Owner: u})
		}
	}
	return out
}

// Resolve finds a user-submitted meme by id or id prefix.
func (s *Store) Resolve(idPrefix string) (Meme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolve(idPrefix)
}

func (s *Store) resolve(idPrefix string) (Meme, error) {
	prefix := normalizeIDPrefix(idPrefix)
	if len(prefix) < minPrefixLen {
		return Meme{}, &ValidationError{Field: "meme id", Value: idPrefix, Reason: fmt.Sprintf("need at least %d characters", minPrefixLen)}
	}
	var found *Meme
	for _, m := range s.allMemes() {
		if !strings.HasPrefix(idHex(m.ID), prefix) {
			continue
		}
		if found != nil && found.ID != m.ID {
			return Meme{}, fmt.Errorf("%w: %s", ErrAmbiguousID, idPrefix)
		}
		if found == nil {
			hit := m
			found = &hit
		}
	}
	if found == nil {
		return Meme{}, fmt.Errorf("%w: %s", ErrMemeNotFound, idPrefix)
	}
	return *found, nil
}

// Vote adds delta to key's tally, creating it at zero, and persists.
func (s *Store) Vote(ctx context.Context, key string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vote(ctx, key, delta)
}

func (s *Store) vote(ctx context.Context, key string, delta int) (int, error) {
	_, existed := s.state.Votes[key]
	var total int
	err := s.mutate(ctx, func(st *store.Snapshot) {
		st.Votes[key] += delta
		total = st.Votes[key]
	})
	if err != nil {
		return 0, err
	}
	if !existed {
		s.order = append(s.order, key)
	}
	return total, nil
}

// VoteUser votes for a user's aggregate reputation. The user must have
// submitted at least one meme.
func (s *Store) VoteUser(ctx context.Context, userID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.UserMemes[userID]) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrUserHasNoMemes, userID)
	}
	return s.vote(ctx, userID, delta)
}

// VoteMeme resolves idPrefix and votes for that meme.
func (s *Store) VoteMeme(ctx context.Context, idPrefix string, delta int) (Meme, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.resolve(idPrefix)
	if err != nil {
		return Meme{}, 0, err
	}
	total, err := s.vote(ctx, m.ID.String(), delta)
	if err != nil {
		return Meme{}, 0, err
	}
	return m, total, nil
}

// Top returns at most n entries by descending tally, ties in first-seen order.
func (s *Store) Top(n int) []Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top(n)
}

func (s *Store) top(n int) []Tally {
	if n <= 0 {
		return nil
	}
	out := make([]Tally, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, Tally{Key: k, Votes: s.state.Votes[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Votes > out[j].Votes })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Leader returns the highest tally; false when the ledger is empty.
func (s *Store) Leader() (Tally, bool) {
	top := s.Top(1)
	if len(top) == 0 {
		return Tally{}, false
	}
	return top[0], true
}

// TopMeme returns the leading tally with a meme to show for it. In user scope
// the meme is drawn at random from the leader's submissions; in meme scope it
// is the voted meme itself.
func (s *Store) TopMeme() (Meme, Tally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topMeme()
}

// Standings is the leader together with the ledger it was read from.
type Standings struct {
	Meme    Meme
	Leader  Tally
	Tallies map[string]int
}

// Standings reads the top meme and a copy of the ledger under one lock. Pass
// Tallies to ResetVotesSeen to clear exactly what was announced.
func (s *Store) Standings() (Standings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, leader, err := s.topMeme()
	if err != nil {
		return Standings{Leader: leader}, err
	}
	tallies := make(map[string]int, len(s.state.Votes))
	for k, v := range s.state.Votes {
		tallies[k] = v
	}
	return Standings{Meme: m, Leader: leader, Tallies: tallies}, nil
}

func (s *Store) topMeme() (Meme, Tally, error) {
	top := s.top(1)
	if len(top) == 0 {
		return Meme{}, Tally{}, ErrNoVotes
	}
	leader := top[0]
	switch s.scope {
	case ScopeMeme:
		for _, m := range s.allMemes() {
			if m.ID.String() == leader.Key {
				return m, leader, nil
			}
		}
		return Meme{}, leader, fmt.Errorf("%w: %s", ErrMemeNotFound, leader.Key)
	default:
		urls := s.state.UserMemes[leader.Key]
		if len(urls) == 0 {
			return Meme{}, leader, fmt.Errorf("%w: leader %s", ErrEmptyPool, leader.Key)
		}
		url := urls[s.rnd.IntN(len(urls))]
		return Meme{ID: IDFor(url), URL: url, Owner: leader.Key}, leader, nil
	}
}

// Stats returns how many memes userID submitted and the votes they received.
func (s *Store) Stats(userID string) (submitted int, received int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := s.state.UserMemes[userID]
	if s.scope == ScopeUser {
		return len(urls), s.state.Votes[userID]
	}
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		id := IDFor(u).String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		received += s.state.Votes[id]
	}
	return len(urls), received
}

// Summary counts the current contents.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{Users: len(s.state.UserMemes), VoteKeys: len(s.state.Votes)}
	for _, urls := range s.state.UserMemes {
		sum.Memes += len(urls)
	}
	for _, urls := range s.state.CategoryMemes {
		sum.CategoryMemes += len(urls)
	}
	return sum
}

// ResetVotes clears the ledger and persists.
func (s *Store) ResetVotes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutate(ctx, func(st *store.Snapshot) {
		st.Votes = make(map[string]int)
	})
	if err != nil {
		return err
	}
	s.order = nil
	return nil
}

// ResetVotesSeen subtracts seen from the ledger and persists. Keys that drop
// back to zero are removed; votes cast after seen was read are kept.
func (s *Store) ResetVotesSeen(ctx context.Context, seen map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutate(ctx, func(st *store.Snapshot) {
		for k, v := range seen {
			cur, ok := st.Votes[k]
			if !ok {
				continue
			}
			if cur -= v; cur == 0 {
				delete(st.Votes, k)
			} else {
				st.Votes[k] = cur
			}
		}
	})
	if err != nil {
		return err
	}
	s.order = slices.DeleteFunc(s.order, func(k string) bool {
		_, ok := s.state.Votes[k]
		return !ok
	})
	return nil
}

// ResetAll clears user submissions and the ledger and persists. Category
// buckets are kept.
func (s *Store) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutate(ctx, func(st *store.Snapshot) {
		st.UserMemes = make(map[string][]string)
		st.Votes = make(map[string]int)
	})
	if err != nil {
		return err
	}
	s.order = nil
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() store.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// sortUserIDs orders numeric ids numerically and everything else lexically after them.
func sortUserIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseUint(ids[i], 10, 64)
		b, errB := strconv.ParseUint(ids[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}
