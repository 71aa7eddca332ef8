package statement

// Sequencer hands out per-date line numbers. It starts from the highest
// number already stored for each date and only advances when a number is
// confirmed as used, so deduplicated rows never leave gaps.
type Sequencer struct {
	current map[string]int
}

// NewSequencer seeds the sequencer with the stored maximum per date key.
func NewSequencer(stored map[string]int) *Sequencer {
	current := make(map[string]int, len(stored))
	for k, v := range stored {
		current[k] = v
	}
	return &Sequencer{current: current}
}

// Next returns the number the next row of dateKey would receive.
func (s *Sequencer) Next(dateKey string) int {
	return s.current[dateKey] + 1
}

// Confirm records that n was used for dateKey.
func (s *Sequencer) Confirm(dateKey string, n int) {
	if n > s.current[dateKey] {
		s.current[dateKey] = n
	}
}

// DateKeys returns the distinct date keys of rows in file order.
func DateKeys(rows []Row) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range rows {
		k := r.DateKey()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
