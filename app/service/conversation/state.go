package conversation

// State is the conversation state of one support session.
// Empty Intent and Sentiment mean the fields were never set.
type State struct {
	History History

	CustomerID      string
	Intent          Intent
	Sentiment       Sentiment
	NeedsEscalation bool
	ResponseDraft   string
	Reply           Reply
}

func NewState(customerID string) *State {
	return &State{
		CustomerID: customerID,
	}
}

// Clone returns a deep copy that shares nothing mutable with s.
func (s *State) Clone() *State {
	clone := *s
	clone.History = s.History.clone()

	return &clone
}

func (s *State) AppendUser(text string) {
	s.History.add(RoleUser, text)
}

// AppendAssistant records the turn's reply and keeps ResponseDraft in sync with it.
func (s *State) AppendAssistant(text string) {
	s.History.add(RoleAssistant, text)
	s.ResponseDraft = text
}

// LatestUserText returns the content of the most recent user message or "" if there is none.
func (s *State) LatestUserText() string {
	msg, ok := s.History.Last(RoleUser)
	if !ok {
		return ""
	}

	return msg.Content
}
