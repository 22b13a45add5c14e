package message

// Kind tags a message body. The layout behind each kind is agreed between the
// producing and consuming systems; the stream never looks inside.
type Kind uint16

const KindNone Kind = 0

// Message is one tagged payload.
type Message struct {
	Kind    Kind
	Payload []byte
}

// Stream is an ordered, append-only queue of messages drained once per frame.
// A nil *Stream reads as empty.
type Stream struct {
	msgs []Message
}

func NewStream() *Stream {
	return &Stream{msgs: make([]Message, 0, 16)}
}

// Append queues m after every message already in the stream.
func (s *Stream) Append(m Message) {
	s.msgs = append(s.msgs, m)
}

// Emit is Append for a kind and an encoded payload.
func (s *Stream) Emit(kind Kind, payload []byte) {
	s.msgs = append(s.msgs, Message{Kind: kind, Payload: payload})
}

func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.msgs)
}

// Messages returns the pending messages without consuming them.
// The returned slice must not be modified.
func (s *Stream) Messages() []Message {
	if s == nil {
		return nil
	}
	return s.msgs
}

// Drain returns every pending message in append order and empties the stream.
func (s *Stream) Drain() []Message {
	if s == nil || len(s.msgs) == 0 {
		return nil
	}
	out := s.msgs
	s.msgs = make([]Message, 0, cap(out))
	return out
}

// Concat appends other's messages after s's, in other's order. other is left
// untouched.
func (s *Stream) Concat(other *Stream) {
	if other.Len() == 0 {
		return
	}
	s.msgs = append(s.msgs, other.msgs...)
}

// Reset discards every pending message.
func (s *Stream) Reset() {
	s.msgs = s.msgs[:0]
}
