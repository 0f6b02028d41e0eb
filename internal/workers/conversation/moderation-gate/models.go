package moderationgate

type Verdict int

const (
	Clear Verdict = iota
	Flagged
)

func (v Verdict) String() string {
	if v == Flagged {
		return "flagged"
	}
	return "clear"
}

// Source labels where a checked text came from.
type Source string

const (
	SourceUser           Source = "user"
	SourceAssistant      Source = "assistant"
	SourceVerdict        Source = "verdict"
	SourceProfile        Source = "profile"
	SourceRecommendation Source = "recommendation"
	SourceFeatures       Source = "features"
)
