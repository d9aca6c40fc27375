package message

// AddFragment creates and links a new fragment of m, carrying the given
// subset of keys, destined for serverIndex. It increments m.Outstanding so
// m.Complete() reports false until every fragment's response has been
// folded in via FragmentDone.
func (m *Message) AddFragment(serverIndex int, keys []Key) *Message {
	frag := New(m.Type)
	frag.Keys = keys
	frag.Parent = m
	frag.ServerIndex = serverIndex
	m.Fragments = append(m.Fragments, frag)
	m.Outstanding++
	return frag
}

// FragmentDone decrements the parent's outstanding-fragment count. It is
// called exactly once per fragment, whether that fragment's response
// arrived successfully or was synthesized as a failure (backend error,
// ejection, or timeout). Calling it more than once per fragment, or on a
// message with no parent, is a programming error and panics.
func (m *Message) FragmentDone() {
	if m.Parent == nil {
		panic("message: FragmentDone called on a non-fragment message")
	}
	if m.Parent.Outstanding <= 0 {
		panic("message: FragmentDone called more times than there are outstanding fragments")
	}
	m.Parent.Outstanding--
}
