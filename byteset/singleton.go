package byteset

// Singleton reports the one byte m matches and true, or false if m matches
// zero or more than one byte. The rule engine's first-byte index (and its
// Dump diagnostic) only ever populates a slot from a Matcher built by a
// single root's criterion, so this is almost always a cheap Exactly/Or-of-
// Exactly check rather than a full 256-byte scan.
func Singleton(m Matcher) (byte, bool) {
	if e, ok := m.(*mExact); ok {
		return e.Byte, true
	}
	var found byte
	count := 0
	m.ForEach(func(b byte) {
		found = b
		count++
	})
	if count == 1 {
		return found, true
	}
	return 0, false
}
