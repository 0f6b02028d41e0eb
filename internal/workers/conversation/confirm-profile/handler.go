package confirmprofile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "confirm-profile"

	ReasonUnreadable = "confirmation verdict unreadable"
)

const evaluationPrompt = `You are a senior evaluator with an eye for detail. The input text contains a user requirement captured through 6 keys.
Evaluate whether the input text has all of the following keys:
{
  'GPU intensity': 'values',
  'Display quality': 'values',
  'Portability': 'values',
  'Multitasking': 'values',
  'Processing speed': 'values',
  'Budget': 'number'
}
The values for every key except 'Budget' must be one of 'low', 'medium' or 'high'.
The 'Budget' key can take only a numerical value.
Then evaluate whether every key has its value filled correctly.
Output a JSON object with the key 'result' set to the one-word string 'Yes' or 'No'.
Output 'Yes' only if the values are correctly filled for all keys, otherwise 'No'.
If the answer is 'No', give the reason in the key 'reason'.
Think carefully before answering.`

// Handler asks the completion capability whether an assistant message
// already carries a complete requirement profile.
type Handler struct {
	config    *Config
	completer genai.Completer
	schema    *gojsonschema.Schema
	logger    logger.Logger
}

func NewHandler(config *Config, completer genai.Completer, log logger.Logger) *Handler {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(verdictSchema))
	if err != nil {
		panic(fmt.Sprintf("confirmprofile: invalid verdict schema: %v", err))
	}
	return &Handler{
		config:    config,
		completer: completer,
		schema:    schema,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Confirm evaluates assistantText. A verdict that is not valid JSON or does
// not match the schema is Incomplete. Capability errors are returned as-is.
func (h *Handler) Confirm(ctx context.Context, assistantText string) (Verdict, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	raw, err := h.completer.Complete(ctx, genai.Request{
		System: evaluationPrompt,
		Messages: []models.Turn{
			{Role: models.RoleUser, Content: "Here is the input: " + assistantText},
		},
		JSONMode: true,
	})
	if err != nil {
		return Verdict{}, err
	}

	verdict := h.interpret(raw)
	h.logger.Debug("confirmation verdict", map[string]interface{}{
		"complete": verdict.Complete,
		"reason":   verdict.Reason,
	})
	return verdict, nil
}

// Execute method for direct usage
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	v, err := h.Confirm(ctx, input.AssistantText)
	if err != nil {
		return nil, err
	}
	return &Output{Verdict: v}, nil
}

func (h *Handler) interpret(raw string) Verdict {
	unreadable := Verdict{Complete: false, Reason: ReasonUnreadable, Raw: raw}

	result, err := h.schema.Validate(gojsonschema.NewStringLoader(strings.TrimSpace(raw)))
	if err != nil {
		return unreadable
	}
	if !result.Valid() {
		h.logger.Warn("confirmation verdict failed schema validation", map[string]interface{}{
			"errors": schemaErrors(result),
		})
		return unreadable
	}

	var rv rawVerdict
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		return unreadable
	}

	complete := strings.EqualFold(strings.TrimSpace(rv.Result), "yes")
	return Verdict{Complete: complete, Reason: rv.Reason, Raw: raw}
}

func schemaErrors(result *gojsonschema.Result) []string {
	out := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		out = append(out, e.String())
	}
	return out
}
