package discovery

import "time"

var ProtectedDirs = protectedDirs

func SetClock(s *Scanner, now func() time.Time) { s.now = now }

func Walks(s *Scanner) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walks
}
