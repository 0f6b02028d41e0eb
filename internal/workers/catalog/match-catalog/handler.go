package matchcatalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "shopassist/internal/common/errors"
	"shopassist/internal/common/logger"
	"shopassist/internal/common/metrics"
	"shopassist/internal/models"
	extractprofile "shopassist/internal/workers/conversation/extract-profile"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "match-catalog"
)

// Catalog exposes the loaded, read-only catalog.
type Catalog interface {
	Items() []models.CandidateItem
}

// ShortlistValidator drops weak candidates.
type ShortlistValidator interface {
	Validate(scored []models.ScoredCandidate) ([]models.ScoredCandidate, error)
}

type Handler struct {
	config     *Config
	catalog    Catalog
	validator  ShortlistValidator
	errHandler *apperrors.JobErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, catalog Catalog, validator ShortlistValidator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		catalog:    catalog,
		validator:  validator,
		errHandler: apperrors.NewJobErrorHandler(log),
		logger:     log,
	}
}

// Handle resolves a match-catalog workflow job.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err)
		return err
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return err
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, err)
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	return nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewMalformedProfileError("", fmt.Sprintf("parse job variables: %v", err))
	}
	return &input, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

// Execute extracts the profile, applies the budget floor, matches and
// validates. Budget and empty-shortlist outcomes are reported in Output;
// only a malformed profile is an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	profile, err := extractprofile.ExtractRequirement(input.Profile)
	if err != nil {
		metrics.MatchesTotal.WithLabelValues("malformed_profile").Inc()
		return nil, err
	}
	return h.MatchProfile(ctx, profile)
}

// MatchProfile runs matching for an already extracted profile.
func (h *Handler) MatchProfile(ctx context.Context, profile models.RequirementProfile) (*Output, error) {
	if err := profile.ValidateFloor(h.config.BudgetFloor); err != nil {
		if errors.Is(err, apperrors.ErrBudgetTooLow) {
			metrics.MatchesTotal.WithLabelValues("budget_too_low").Inc()
			return &Output{Outcome: OutcomeBudgetTooLow, Budget: profile.Budget}, nil
		}
		metrics.MatchesTotal.WithLabelValues("malformed_profile").Inc()
		return nil, err
	}

	scored := Match(profile, h.catalog.Items(), h.config.MaxItems)
	shortlist, err := h.validator.Validate(scored)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoCandidatesMatch) {
			metrics.MatchesTotal.WithLabelValues("no_candidates").Inc()
			h.logger.Info("no candidates match", map[string]interface{}{
				"budget": profile.Budget,
				"scored": len(scored),
			})
			return &Output{Outcome: OutcomeNoCandidatesMatch, Budget: profile.Budget, Shortlist: []models.ScoredCandidate{}}, nil
		}
		return nil, err
	}

	metrics.MatchesTotal.WithLabelValues("shortlisted").Inc()
	h.logger.Info("shortlist built", map[string]interface{}{
		"budget":    profile.Budget,
		"scored":    len(scored),
		"shortlist": len(shortlist),
		"topScore":  shortlist[0].Score,
	})
	return &Output{Outcome: OutcomeShortlisted, Budget: profile.Budget, Shortlist: shortlist}, nil
}
