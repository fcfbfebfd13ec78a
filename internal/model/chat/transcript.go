package chat

// Transcript is the ordered, append-only list of turns shown in a page view.
// Its methods never modify the receiver; they return a fresh copy so that an
// older snapshot handed to a renderer stays intact.
type Transcript []Message

// NewTranscript seeds a transcript with the model's greeting.
func NewTranscript(greeting string) Transcript {
	if greeting == "" {
		return Transcript{}
	}
	return Transcript{ModelMessage(greeting)}
}

// Append returns a copy of t with msg added at the end.
func (t Transcript) Append(msg Message) Transcript {
	next := make(Transcript, len(t), len(t)+1)
	copy(next, t)
	return append(next, msg)
}

// ReplaceLast returns a copy of t whose trailing message carries content.
// An empty transcript is returned unchanged.
func (t Transcript) ReplaceLast(content string) Transcript {
	if len(t) == 0 {
		return t
	}
	next := make(Transcript, len(t))
	copy(next, t)
	next[len(next)-1].Content = content
	return next
}

// Last returns the trailing message and whether one exists.
func (t Transcript) Last() (Message, bool) {
	if len(t) == 0 {
		return Message{}, false
	}
	return t[len(t)-1], true
}

// HasRole reports whether any message has the given role.
func (t Transcript) HasRole(role Role) bool {
	for _, msg := range t {
		if msg.Role == role {
			return true
		}
	}
	return false
}
