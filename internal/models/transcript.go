package models

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an append-only sequence of turns.
type Transcript []Turn

func (t Transcript) Append(role Role, content string) Transcript {
	return append(t, Turn{Role: role, Content: content})
}

func (t Transcript) Clone() Transcript {
	if t == nil {
		return nil
	}
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}

func (t Transcript) Len() int {
	return len(t)
}

// Last returns the most recent turn, or false when the transcript is empty.
func (t Transcript) Last() (Turn, bool) {
	if len(t) == 0 {
		return Turn{}, false
	}
	return t[len(t)-1], true
}
