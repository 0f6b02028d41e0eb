package elicitation

// Result labels how a turn ended.
type Result string

const (
	ResultIncomplete   Result = "incomplete"
	ResultMalformed    Result = "malformed_profile"
	ResultBudgetTooLow Result = "budget_too_low"
	ResultHandoff      Result = "no_candidates_match"
	ResultRecommending Result = "recommending"
)

// Outcome is what a turn produced. When Commit is false the caller must
// discard the session clone it passed in.
type Outcome struct {
	Reply  string
	Result Result
	Commit bool
}
