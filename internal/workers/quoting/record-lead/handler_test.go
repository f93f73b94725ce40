package recordlead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "cotizador/internal/common/errors"
	"cotizador/internal/common/logger"
	"cotizador/internal/models"
)

type MockRecorder struct {
	RecordFunc func(ctx context.Context, lead models.Lead) error
}

func (m *MockRecorder) Record(ctx context.Context, lead models.Lead) error {
	return m.RecordFunc(ctx, lead)
}

type MockNotifier struct {
	NotifyLeadFunc func(ctx context.Context, lead models.Lead) error
}

func (m *MockNotifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	return m.NotifyLeadFunc(ctx, lead)
}

func newHandler(t *testing.T, rec *MockRecorder, n *MockNotifier) *Handler {
	t.Helper()
	opts := HandlerOptions{Recorder: rec, Logger: logger.NewNoOpLogger()}
	if n != nil {
		opts.Notifier = n
	}
	h, err := NewHandler(opts)
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2026, 10, 15, 15, 4, 0, 0, time.UTC) }
	return h
}

func validInput() *Input {
	return &Input{
		LeadID:     "lead-1",
		Client:     "  Lucía Pérez ",
		Email:      "lucia@example.com",
		Phone:      "987654321",
		HolderAge:  35,
		Health:     models.HealthHealthy,
		Tier:       models.TierIntegral,
		Continuity: models.ContinuityNew,
		Clinics:    []string{"Clínica Delgado"},
		Insured:    2,
		Role:       "client",
	}
}

func TestNewHandler_RequiresRecorder(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewNoOpLogger()})
	assert.Error(t, err)
}

func TestHandler_Execute_RecordsAndNotifies(t *testing.T) {
	var recorded, notified models.Lead
	h := newHandler(t,
		&MockRecorder{RecordFunc: func(ctx context.Context, lead models.Lead) error {
			recorded = lead
			return nil
		}},
		&MockNotifier{NotifyLeadFunc: func(ctx context.Context, lead models.Lead) error {
			notified = lead
			return nil
		}},
	)

	out, err := h.Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, &Output{LeadID: "lead-1", Recorded: true, Notified: true}, out)
	assert.Equal(t, "Lucía Pérez", recorded.Client)
	assert.Equal(t, 2, recorded.Insured)
	assert.Equal(t, time.Date(2026, 10, 15, 15, 4, 0, 0, time.UTC), recorded.Timestamp)
	assert.Equal(t, recorded, notified)
}

func TestHandler_Execute_GeneratesIDAndDefaultsInsured(t *testing.T) {
	var recorded models.Lead
	h := newHandler(t, &MockRecorder{RecordFunc: func(ctx context.Context, lead models.Lead) error {
		recorded = lead
		return nil
	}}, nil)

	in := validInput()
	in.LeadID = ""
	in.Insured = 0
	out, err := h.Execute(context.Background(), in)
	require.NoError(t, err)

	assert.NotEmpty(t, out.LeadID)
	assert.Equal(t, out.LeadID, recorded.ID)
	assert.Equal(t, 1, recorded.Insured)
	assert.False(t, out.Notified)
}

func TestHandler_Execute_RecordFailureIsRetryable(t *testing.T) {
	h := newHandler(t,
		&MockRecorder{RecordFunc: func(ctx context.Context, lead models.Lead) error {
			return errors.New("disk full")
		}},
		&MockNotifier{NotifyLeadFunc: func(ctx context.Context, lead models.Lead) error {
			t.Fatal("notifier must not run when the lead was not stored")
			return nil
		}},
	)

	_, err := h.Execute(context.Background(), validInput())
	stdErr, ok := commonerrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeLeadRecordFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 3, commonerrors.GetRetryCount(stdErr.Code))
}

func TestHandler_Execute_NotificationFailureDoesNotFail(t *testing.T) {
	h := newHandler(t,
		&MockRecorder{RecordFunc: func(ctx context.Context, lead models.Lead) error { return nil }},
		&MockNotifier{NotifyLeadFunc: func(ctx context.Context, lead models.Lead) error {
			return errors.New("smtp down")
		}},
	)

	out, err := h.Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, out.Recorded)
	assert.False(t, out.Notified)
}

func TestHandler_Execute_AcceptsAnonymousClient(t *testing.T) {
	var recorded models.Lead
	h := newHandler(t, &MockRecorder{RecordFunc: func(ctx context.Context, lead models.Lead) error {
		recorded = lead
		return nil
	}}, nil)

	in := validInput()
	in.Client = "   "
	out, err := h.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, out.Recorded)
	assert.Empty(t, recorded.Client)
	assert.Equal(t, "lucia@example.com", recorded.Email)
}
