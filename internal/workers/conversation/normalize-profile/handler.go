package normalizeprofile

import (
	"context"

	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
)

const (
	TaskType = "normalize-profile"
)

const normalizePrompt = `You are a python expert. You are provided an input.
Check whether a python dictionary is present in the input and return only that dictionary.
The output must use exactly these keys, in this order:
{'GPU intensity': 'low/ medium/ high', 'Display quality': 'low/ medium/ high', 'Portability': 'low/ medium/ high', 'Multitasking': 'low/ medium/ high', 'Processing speed': 'low/ medium/ high', 'Budget': 'numerical value'}
Make sure that the value of budget is also present in the input.
Keep the values exactly as they appear in the input, removing thousands separators and currency words from the budget.
####
input 1: - GPU intensity: low - Display quality: high - Portability: low - Multitasking: high - Processing speed: medium - Budget: 50,000 INR
output 1: {'GPU intensity': 'low', 'Display quality': 'high', 'Portability': 'low', 'Multitasking': 'high', 'Processing speed': 'medium', 'Budget': '50000'}

input 2: {'GPU intensity':     'low', 'Display quality':     'low', 'Portability':    'medium', 'Multitasking': 'medium', 'Processing speed': 'low', 'Budget': '90,000'}
output 2: {'GPU intensity': 'low', 'Display quality': 'low', 'Portability': 'medium', 'Multitasking': 'medium', 'Processing speed': 'low', 'Budget': '90000'}

input 3: Here is your user profile 'GPU intensity': 'high','Display quality': 'high','Portability': 'medium','Multitasking': 'high','Processing speed': 'high','Budget': '200000 INR'
output 3: {'GPU intensity': 'high','Display quality': 'high','Portability': 'medium','Multitasking': 'high','Processing speed': 'high','Budget': '200000'}
####`

// Handler restates an assistant message as a canonical profile dictionary
// so extraction sees a single well-formed span.
type Handler struct {
	config    *Config
	completer genai.Completer
	logger    logger.Logger
}

func NewHandler(config *Config, completer genai.Completer, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		completer: completer,
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Normalize returns the completion's restatement of text. The result is
// untrusted and must be gated and extracted by the caller.
func (h *Handler) Normalize(ctx context.Context, text string) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out, err := h.completer.Complete(ctx, genai.Request{
		System: normalizePrompt,
		Messages: []models.Turn{
			{Role: models.RoleUser, Content: "Here is the user input: " + text},
		},
	})
	if err != nil {
		return "", err
	}

	h.logger.Debug("profile normalized", map[string]interface{}{
		"inputLength":  len(text),
		"outputLength": len(out),
	})
	return out, nil
}
