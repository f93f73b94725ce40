package recordlead

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"cotizador/internal/common/errors"
	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
	"cotizador/internal/common/validation"
	"cotizador/internal/leads"
	"cotizador/internal/models"
	"cotizador/internal/service"
)

const TaskType = "quoting.record-lead"

type Handler struct {
	config   *Config
	recorder leads.Recorder
	notifier service.LeadNotifier
	logger   logger.Logger
	errorsHd *errors.ErrorHandler
	schema   *validation.Validator
	now      func() time.Time
}

// HandlerOptions carries the collaborators of the worker. Notifier may be nil.
type HandlerOptions struct {
	Config   *Config
	Recorder leads.Recorder
	Notifier service.LeadNotifier
	Logger   logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Recorder == nil {
		return nil, fmt.Errorf("%s: recorder is required", TaskType)
	}
	log := opts.Logger.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   opts.Config,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		logger:   log,
		errorsHd: errors.NewErrorHandler(log),
		now:      time.Now,
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
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute stores the lead and, when enabled, alerts the advisor. Storage
// failures are retryable; notification failures are only logged. The
// client name is optional, as on the quoting form.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	id := input.LeadID
	if id == "" {
		id = uuid.NewString()
	}
	lead := models.Lead{
		ID:         id,
		Timestamp:  h.now(),
		Client:     input.Client,
		Email:      input.Email,
		Phone:      input.Phone,
		HolderAge:  input.HolderAge,
		Health:     input.Health,
		Tier:       input.Tier,
		Continuity: input.Continuity,
		Clinics:    input.Clinics,
		Insured:    input.Insured,
		Role:       input.Role,
	}
	lead.Normalize()

	if err := h.recorder.Record(ctx, lead); err != nil {
		return nil, errors.NewLeadRecordFailedError("leads", err)
	}
	out := &Output{LeadID: lead.ID, Recorded: true}

	if h.config.Notify && h.notifier != nil {
		if err := h.notifier.NotifyLead(ctx, lead); err != nil {
			h.logger.Warn("lead notification failed", map[string]interface{}{
				"leadId": lead.ID,
				"error":  err.Error(),
			})
		} else {
			out.Notified = true
		}
	}
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
