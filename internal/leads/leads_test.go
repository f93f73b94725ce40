package leads

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/common/logger"
	"cotizador/internal/common/zoho"
	"cotizador/internal/models"
)

func sampleLead() models.Lead {
	return models.Lead{
		ID:         "6f1c7a52-3b0e-4a8e-9a57-1f2d3c4b5a69",
		Timestamp:  time.Date(2026, time.October, 15, 9, 5, 7, 0, time.UTC),
		Client:     "María José Pérez",
		Email:      "maria@example.com",
		Phone:      "987654321",
		HolderAge:  42,
		Health:     models.HealthHealthy,
		Tier:       models.TierIntegral,
		Continuity: models.ContinuityNew,
		Clinics:    []string{"Clínica Delgado", "Clínica San Felipe"},
		Insured:    3,
		Role:       "Cliente",
	}
}

func TestRow(t *testing.T) {
	assert.Equal(t, []string{
		"15/10/2026 09:05:07", "María José Pérez", "maria@example.com", "987654321", "42", "Sano",
		"Integral", "Nuevo", "Clínica Delgado, Clínica San Felipe", "3", "Cliente",
	}, Row(sampleLead()))
}

func TestCSVRecorder_WritesBOMAndHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historial_leads.csv")
	r := NewCSVRecorder(path)

	require.NoError(t, r.Record(context.Background(), sampleLead()))
	second := sampleLead()
	second.Client = "Juan"
	second.Clinics = nil
	require.NoError(t, r.Record(context.Background(), second))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, bom))
	assert.Equal(t, 1, bytes.Count(raw, bom))

	records, err := csv.NewReader(bytes.NewReader(raw[len(bom):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, "María José Pérez", records[1][1])
	assert.Equal(t, "Clínica Delgado, Clínica San Felipe", records[1][8])
	assert.Equal(t, "Juan", records[2][1])
	assert.Equal(t, "", records[2][8])
}

func TestCSVRecorder_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "historial_leads.csv")
	require.NoError(t, os.WriteFile(path, append(append([]byte{}, bom...), []byte("Fecha,Cliente\nx,y\n")...), 0o644))

	require.NoError(t, NewCSVRecorder(path).Record(context.Background(), sampleLead()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(raw, bom))
	assert.Equal(t, 1, bytes.Count(raw, []byte("Fecha")))
}

func TestPostgresRecorder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lead := sampleLead()
	mock.ExpectExec("INSERT INTO quote_leads").
		WithArgs(lead.ID, lead.Timestamp, lead.Client, lead.Email, lead.Phone, 42, "Sano",
			"Integral", "Nuevo", "Clínica Delgado, Clínica San Felipe", 3, "Cliente").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgresRecorder(db).Record(context.Background(), lead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_DuplicateIDIsSkipped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lead := sampleLead()
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO quote_leads .* ON CONFLICT \(id\) DO NOTHING`).
			WithArgs(lead.ID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, int64(1-i)))
	}

	rec := NewPostgresRecorder(db)
	require.NoError(t, rec.Record(context.Background(), lead))
	require.NoError(t, rec.Record(context.Background(), lead))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_GeneratesIDAndWrapsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lead := sampleLead()
	lead.ID = ""
	mock.ExpectExec("INSERT INTO quote_leads").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("relation does not exist"))

	err = NewPostgresRecorder(db).Record(context.Background(), lead)
	assert.ErrorContains(t, err, "insert lead")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type MockCRM struct {
	SearchFunc func(ctx context.Context, email string) ([]zoho.Lead, error)
	CreateFunc func(ctx context.Context, lead *zoho.Lead) (string, error)
}

func (m *MockCRM) SearchLeadsByEmail(ctx context.Context, email string) ([]zoho.Lead, error) {
	return m.SearchFunc(ctx, email)
}

func (m *MockCRM) CreateLead(ctx context.Context, lead *zoho.Lead) (string, error) {
	return m.CreateFunc(ctx, lead)
}

func TestZohoRecorder_CreatesNewLead(t *testing.T) {
	var created *zoho.Lead
	crm := &MockCRM{
		SearchFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			assert.Equal(t, "maria@example.com", email)
			return nil, nil
		},
		CreateFunc: func(ctx context.Context, lead *zoho.Lead) (string, error) {
			created = lead
			return "zoho-1", nil
		},
	}

	require.NoError(t, NewZohoRecorder(crm, "").Record(context.Background(), sampleLead()))
	require.NotNil(t, created)
	assert.Equal(t, "María José", created.FirstName)
	assert.Equal(t, "Pérez", created.LastName)
	assert.Equal(t, "987654321", created.Mobile)
	assert.Equal(t, "Cotizador Web", created.Source)
	assert.Contains(t, created.Description, "Clínica Delgado, Clínica San Felipe")
}

func TestZohoRecorder_SkipsExistingLead(t *testing.T) {
	crm := &MockCRM{
		SearchFunc: func(ctx context.Context, email string) ([]zoho.Lead, error) {
			return []zoho.Lead{{ID: "1"}}, nil
		},
		CreateFunc: func(ctx context.Context, lead *zoho.Lead) (string, error) {
			t.Fatal("lead must not be created twice")
			return "", nil
		},
	}
	assert.NoError(t, NewZohoRecorder(crm, "web").Record(context.Background(), sampleLead()))
}

func TestSplitName(t *testing.T) {
	first, last := splitName("")
	assert.Equal(t, "", first)
	assert.Equal(t, "Cliente", last)

	first, last = splitName("Ana")
	assert.Equal(t, "", first)
	assert.Equal(t, "Ana", last)
}

type recorderFunc func(ctx context.Context, lead models.Lead) error

func (f recorderFunc) Record(ctx context.Context, lead models.Lead) error { return f(ctx, lead) }

func TestMulti_AttemptsEverySinkAndJoinsErrors(t *testing.T) {
	var calls []string
	ok := recorderFunc(func(ctx context.Context, lead models.Lead) error {
		calls = append(calls, "csv")
		return nil
	})
	failing := recorderFunc(func(ctx context.Context, lead models.Lead) error {
		calls = append(calls, "zoho")
		return errors.New("unauthorized")
	})
	last := recorderFunc(func(ctx context.Context, lead models.Lead) error {
		calls = append(calls, "postgres")
		return nil
	})

	m := NewMulti(logger.NewNoOpLogger(),
		Named{Name: "csv", Recorder: ok},
		Named{Name: "zoho", Recorder: failing},
		Named{Name: "postgres", Recorder: last},
	)

	err := m.Record(context.Background(), sampleLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zoho: unauthorized")
	assert.Equal(t, []string{"csv", "zoho", "postgres"}, calls)
	assert.Equal(t, []string{"csv", "zoho", "postgres"}, m.Sinks())
}
