package recommend

import "sync"

// Session is the delivery cap for one user session. It is passed to the
// engine explicitly and only cleared by Reset.
type Session struct {
	mu        sync.Mutex
	delivered []Recommendation
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Delivered returns how many recommendations were delivered.
func (s *Session) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

// History returns the delivered recommendations, oldest first.
func (s *Session) History() []Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recommendation, len(s.delivered))
	copy(out, s.delivered)
	return out
}

// take admits up to perCall of recs under a total cap of max.
func (s *Session) take(recs []Recommendation, max, perCall int) []Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := max - len(s.delivered)
	if n > perCall {
		n = perCall
	}
	if n <= 0 {
		return nil
	}
	if n > len(recs) {
		n = len(recs)
	}
	out := append([]Recommendation(nil), recs[:n]...)
	s.delivered = append(s.delivered, out...)
	return out
}

// Reset clears the cap at a session boundary.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = nil
}
