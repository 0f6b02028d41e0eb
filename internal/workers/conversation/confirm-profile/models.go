package confirmprofile

// Verdict is the completeness judgement for the latest assistant message.
type Verdict struct {
	Complete bool   `json:"complete"`
	Reason   string `json:"reason,omitempty"`
	Raw      string `json:"raw"`
}

type rawVerdict struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

const verdictSchema = `{
  "type": "object",
  "properties": {
    "result": {"type": "string", "minLength": 1},
    "reason": {"type": "string"}
  },
  "required": ["result"]
}`

type Input struct {
	AssistantText string `json:"assistantText"`
}

type Output struct {
	Verdict Verdict `json:"verdict"`
}
