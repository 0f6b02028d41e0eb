package elicitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/genai"
	"shopassist/internal/common/logger"
	"shopassist/internal/models"
	matchcatalog "shopassist/internal/workers/catalog/match-catalog"
	handoffnotify "shopassist/internal/workers/communication/handoff-notify"
	confirmprofile "shopassist/internal/workers/conversation/confirm-profile"
	extractprofile "shopassist/internal/workers/conversation/extract-profile"
	moderationgate "shopassist/internal/workers/conversation/moderation-gate"
)

const (
	TaskType = "elicitation"
)

type Gate interface {
	Require(ctx context.Context, source moderationgate.Source, text string) error
}

type Confirmer interface {
	Confirm(ctx context.Context, assistantText string) (confirmprofile.Verdict, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

type Matcher interface {
	MatchProfile(ctx context.Context, profile models.RequirementProfile) (*matchcatalog.Output, error)
}

type Recommender interface {
	Open(ctx context.Context, sess *models.Session) (string, error)
}

// Dependencies groups the collaborators of a Handler. Normalizer and
// Notifier are optional.
type Dependencies struct {
	Completer   genai.Completer
	Gate        Gate
	Confirmer   Confirmer
	Normalizer  Normalizer
	Matcher     Matcher
	Recommender Recommender
	Notifier    handoffnotify.Notifier
	Logger      logger.Logger
}

// Handler runs turns while a session is Eliciting.
type Handler struct {
	config      *Config
	completer   genai.Completer
	gate        Gate
	confirmer   Confirmer
	normalizer  Normalizer
	matcher     Matcher
	recommender Recommender
	notifier    handoffnotify.Notifier
	logger      logger.Logger
}

func NewHandler(config *Config, deps Dependencies) *Handler {
	return &Handler{
		config:      config,
		completer:   deps.Completer,
		gate:        deps.Gate,
		confirmer:   deps.Confirmer,
		normalizer:  deps.Normalizer,
		matcher:     deps.Matcher,
		recommender: deps.Recommender,
		notifier:    deps.Notifier,
		logger: deps.Logger.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Initialize returns the opening transcript: the standing instruction and
// the greeting.
func (h *Handler) Initialize() models.Transcript {
	var t models.Transcript
	t = t.Append(models.RoleSystem, systemPrompt(h.config.BudgetFloor))
	t = t.Append(models.RoleAssistant, Greeting)
	return t
}

// Turn processes one user message on sess, which must be a clone owned by
// the caller. Flagged text and capability failures are returned as errors
// and leave nothing to commit.
func (h *Handler) Turn(ctx context.Context, sess *models.Session, text string) (Outcome, error) {
	if sess.Phase != models.PhaseEliciting {
		return Outcome{}, fmt.Errorf("elicitation turn in phase %s", sess.Phase)
	}

	if err := h.gate.Require(ctx, moderationgate.SourceUser, text); err != nil {
		return Outcome{}, err
	}
	sess.Elicitation = sess.Elicitation.Append(models.RoleUser, text)

	assistantText, err := h.complete(ctx, sess.Elicitation)
	if err != nil {
		return Outcome{}, err
	}
	if err := h.gate.Require(ctx, moderationgate.SourceAssistant, assistantText); err != nil {
		return Outcome{}, err
	}
	sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, assistantText)

	verdict, err := h.confirmer.Confirm(ctx, assistantText)
	if err != nil {
		return Outcome{}, err
	}
	if err := h.gate.Require(ctx, moderationgate.SourceVerdict, verdict.Raw); err != nil {
		return Outcome{}, err
	}
	if !verdict.Complete {
		h.logger.Debug("profile incomplete", map[string]interface{}{
			"sessionId": sess.ID,
			"reason":    verdict.Reason,
		})
		return Outcome{Reply: assistantText, Result: ResultIncomplete, Commit: true}, nil
	}

	profile, err := h.extract(ctx, assistantText)
	if err != nil {
		var mpe *apperrors.MalformedProfileError
		if errors.As(err, &mpe) {
			h.logger.Warn("profile extraction failed", map[string]interface{}{
				"sessionId": sess.ID,
				"key":       mpe.Key,
				"reason":    mpe.Reason,
			})
			return Outcome{Reply: reAsk(mpe), Result: ResultMalformed, Commit: false}, nil
		}
		return Outcome{}, err
	}

	if err := profile.ValidateFloor(h.config.BudgetFloor); err != nil {
		if errors.Is(err, apperrors.ErrBudgetTooLow) {
			return h.budgetTooLow(sess, profile.Budget), nil
		}
		return Outcome{}, err
	}

	return h.confirm(ctx, sess, profile)
}

func (h *Handler) complete(ctx context.Context, transcript models.Transcript) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}
	return h.completer.Complete(ctx, genai.Request{Messages: transcript})
}

// extract reads the profile from the assistant text, restating it first when
// normalization is on. The structured text is gated before it is parsed.
func (h *Handler) extract(ctx context.Context, assistantText string) (models.RequirementProfile, error) {
	structured := assistantText
	if h.config.NormalizeProfile && h.normalizer != nil {
		out, err := h.normalizer.Normalize(ctx, assistantText)
		if err != nil {
			return models.RequirementProfile{}, err
		}
		structured = out
	}

	if err := h.gate.Require(ctx, moderationgate.SourceProfile, structured); err != nil {
		return models.RequirementProfile{}, err
	}
	return extractprofile.ExtractRequirement(structured)
}

func (h *Handler) budgetTooLow(sess *models.Session, budget int) Outcome {
	notice := budgetNotice(budget, h.config.BudgetFloor)
	sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, notice)
	h.logger.Info("budget below floor", map[string]interface{}{
		"sessionId": sess.ID,
		"budget":    budget,
	})
	return Outcome{Reply: notice, Result: ResultBudgetTooLow, Commit: true}
}

func (h *Handler) confirm(ctx context.Context, sess *models.Session, profile models.RequirementProfile) (Outcome, error) {
	if err := transition(sess, models.PhaseConfirmed); err != nil {
		return Outcome{}, err
	}
	sess.Profile = &profile

	out, err := h.matcher.MatchProfile(ctx, profile)
	if err != nil {
		return Outcome{}, err
	}

	switch out.Outcome {
	case matchcatalog.OutcomeBudgetTooLow:
		sess.Phase = models.PhaseEliciting
		sess.Profile = nil
		return h.budgetTooLow(sess, profile.Budget), nil
	case matchcatalog.OutcomeNoCandidatesMatch:
		return h.handoff(ctx, sess), nil
	}

	sess.Shortlist = out.Shortlist
	if err := transition(sess, models.PhaseShortlisted); err != nil {
		return Outcome{}, err
	}

	reply, err := h.recommender.Open(ctx, sess)
	if err != nil {
		return Outcome{}, err
	}
	if err := transition(sess, models.PhaseRecommending); err != nil {
		return Outcome{}, err
	}

	h.logger.Info("profile confirmed", map[string]interface{}{
		"sessionId": sess.ID,
		"budget":    profile.Budget,
		"shortlist": len(sess.Shortlist),
	})
	return Outcome{Reply: reply, Result: ResultRecommending, Commit: true}, nil
}

// handoff ends the session and asks for a human. Notification failures are
// logged and do not affect the turn.
func (h *Handler) handoff(ctx context.Context, sess *models.Session) Outcome {
	sess.Elicitation = sess.Elicitation.Append(models.RoleAssistant, HandoffMessage)
	sess.Phase = models.PhaseTerminated

	if h.notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, h.config.HandoffTimeout)
		defer cancel()
		err := h.notifier.Notify(nctx, handoffnotify.Event{
			SessionID: sess.ID,
			Reason:    handoffnotify.ReasonNoCandidatesMatch,
			Profile:   sess.Profile,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			h.logger.Warn("handoff notification failed", map[string]interface{}{
				"sessionId": sess.ID,
				"error":     err.Error(),
			})
		}
	}
	return Outcome{Reply: HandoffMessage, Result: ResultHandoff, Commit: true}
}

func transition(sess *models.Session, to models.Phase) error {
	if !models.CanTransition(sess.Phase, to) {
		return fmt.Errorf("illegal phase transition %s -> %s", sess.Phase, to)
	}
	sess.Phase = to
	return nil
}
