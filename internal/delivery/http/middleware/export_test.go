package middleware

// Len reports how many keys the store currently tracks.
func (s *MemoryStore) Len() int {
	n := 0
	s.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
