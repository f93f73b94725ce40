package renderproposal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
	"cotizador/internal/common/validation"
	"cotizador/internal/service"
)

const TaskType = "quoting.render-proposal"

// Proposer renders the proposal of a stored quote.
type Proposer interface {
	Proposal(ctx context.Context, req service.ProposalRequest) (*service.ProposalResult, error)
}

type Handler struct {
	config   *Config
	proposer Proposer
	logger   logger.Logger
	errorsHd *errors.ErrorHandler
	schema   *validation.Validator
}

func NewHandler(config *Config, proposer Proposer, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		proposer: proposer,
		logger:   log,
		errorsHd: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(map[string]string{"variables": err.Error()}))
		return
	}
	if err := h.validateInput(&input); err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}

	h.logger.Info("proposal rendered", map[string]interface{}{
		"jobKey": job.Key,
		"folio":  output.Folio,
	})
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.QuoteID == "" {
		return nil, errors.NewValidationError(map[string]string{"quoteId": "is required"})
	}

	res, err := h.proposer.Proposal(ctx, service.ProposalRequest{
		QuoteID:       input.QuoteID,
		RecommendedID: input.RecommendedID,
		Rationale:     input.Rationale,
		AccessCode:    input.AccessCode,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		Folio:         res.Folio,
		FileName:      res.FileName,
		RecommendedID: res.RecommendedID,
	}
	if h.config.OutputDir == "" {
		out.DocumentBase64 = base64.StdEncoding.EncodeToString(res.Document)
		return out, nil
	}

	if err := os.MkdirAll(h.config.OutputDir, 0o755); err != nil {
		return nil, errors.NewProposalRenderFailedError(err)
	}
	path := filepath.Join(h.config.OutputDir, res.FileName)
	if err := os.WriteFile(path, res.Document, 0o644); err != nil {
		return nil, errors.NewProposalRenderFailedError(err)
	}
	out.FilePath = path
	return out, nil
}

// WithInputSchema checks job variables against v before execution.
func (h *Handler) WithInputSchema(v *validation.Validator) *Handler {
	h.schema = v
	return h
}

func (h *Handler) validateInput(input *Input) error {
	if h.schema == nil {
		return nil
	}
	res, err := h.schema.Validate(input)
	if err != nil {
		return errors.NewInternalError(err)
	}
	if !res.Valid {
		return errors.NewValidationError(res.Fields())
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorsHd.HandleJobError(ctx, client, job, stdErr)
}
