package conversation

// History is the append-only message log of a conversation.
// Entries are never removed or reordered.
type History struct {
	messages []Message
}

func (h *History) add(role Role, content string) {
	h.messages = append(h.messages, Message{
		Role:    role,
		Content: content,
	})
}

func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the log in conversation order.
func (h *History) Messages() []Message {
	result := make([]Message, len(h.messages))
	copy(result, h.messages)

	return result
}

// Last returns the most recent message with the given role.
func (h *History) Last(role Role) (Message, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == role {
			return h.messages[i], true
		}
	}

	return Message{}, false
}

func (h *History) clone() History {
	return History{messages: h.Messages()}
}
