package capture

import "strings"

// Store is an immutable, ordered collection of exchanges. It is built once
// at load time; all accessors are safe for concurrent use without locking.
type Store struct {
	exchanges []Exchange
	byMethod  map[string][]int
}

// NewStore normalizes the given exchanges and builds the method index.
// The slice is owned by the store after the call.
func NewStore(exchanges []Exchange) *Store {
	s := &Store{
		exchanges: exchanges,
		byMethod:  make(map[string][]int),
	}
	for i := range s.exchanges {
		s.exchanges[i].normalize()
		m := s.exchanges[i].Method
		s.byMethod[m] = append(s.byMethod[m], i)
	}
	return s
}

// Len returns the number of exchanges in the store.
func (s *Store) Len() int { return len(s.exchanges) }

// At returns the exchange at corpus index i, or nil if out of range.
func (s *Store) At(i int) *Exchange {
	if i < 0 || i >= len(s.exchanges) {
		return nil
	}
	return &s.exchanges[i]
}

// ByMethod returns the corpus indices of all exchanges recorded with the
// given HTTP method, in corpus order. The returned slice must not be mutated.
func (s *Store) ByMethod(method string) []int {
	return s.byMethod[strings.ToUpper(method)]
}

// Methods returns the distinct HTTP methods present in the corpus.
func (s *Store) Methods() []string {
	out := make([]string, 0, len(s.byMethod))
	for m := range s.byMethod {
		out = append(out, m)
	}
	return out
}

// Summaries returns a compact listing of every exchange for the admin API.
func (s *Store) Summaries() []Summary {
	out := make([]Summary, len(s.exchanges))
	for i := range s.exchanges {
		e := &s.exchanges[i]
		out[i] = Summary{
			Index:     i,
			Method:    e.Method,
			URL:       e.URL,
			Status:    e.Status,
			Timestamp: e.Timestamp,
		}
	}
	return out
}
