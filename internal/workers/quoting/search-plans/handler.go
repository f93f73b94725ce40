package searchplans

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
	"cotizador/internal/common/validation"
	"cotizador/internal/service"
)

const TaskType = "quoting.search-plans"

// Quoter runs a search.
type Quoter interface {
	Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResponse, error)
}

type Handler struct {
	config   *Config
	quoter   Quoter
	logger   logger.Logger
	errorsHd *errors.ErrorHandler
	schema   *validation.Validator
}

func NewHandler(config *Config, quoter Quoter, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		quoter:   quoter,
		logger:   log,
		errorsHd: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

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

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute runs the search for one job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.quoter.Quote(ctx, input.request())
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(resp.Candidates))
	for i, c := range resp.Candidates {
		ids[i] = c.ID
	}
	return &Output{
		QuoteID:          resp.QuoteID,
		Empty:            resp.Empty,
		Message:          resp.Message,
		Notice:           resp.Notice,
		Candidates:       ids,
		RecommendedID:    resp.RecommendedID,
		DefaultRationale: resp.DefaultRationale,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
	}
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
