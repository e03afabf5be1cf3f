package model

// History is an insertion-ordered conversation transcript.
type History []Message

// TurnCount counts conversation turns. A turn begins at each user
// message; assistant replies belong to the turn that prompted them and
// system messages never contribute.
func (h History) TurnCount() int {
	n := 0
	for _, m := range h {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// EstimatedTokens sums the per-message token estimates across the whole
// transcript, system messages included.
func (h History) EstimatedTokens() int {
	total := 0
	for _, m := range h {
		total += m.EstimatedTokens()
	}
	return total
}

// Split partitions the history into system messages and the rest, each
// keeping its original relative order.
func (h History) Split() (system History, other History) {
	for _, m := range h {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			other = append(other, m)
		}
	}
	return system, other
}

// Clone returns an independent copy of the transcript.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	copy(out, h)
	return out
}

// IsPrefixOf reports whether h matches the first len(h) messages of
// longer, comparing role and content only.
func (h History) IsPrefixOf(longer History) bool {
	if len(h) > len(longer) {
		return false
	}
	for i, m := range h {
		if !m.Equal(longer[i]) {
			return false
		}
	}
	return true
}

// Last returns the final message and true, or a zero message and false
// for an empty history.
func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}
