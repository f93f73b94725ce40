package registry

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotizador/internal/common/errors"
)

func shipped(t *testing.T) *Registry {
	t.Helper()
	reg, err := Load(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	return reg
}

func TestLoad_ShippedFile(t *testing.T) {
	reg := shipped(t)
	require.NoError(t, reg.Validate())

	assert.Empty(t, reg.Missing("quoting.search-plans", "quoting.record-lead", "quoting.render-proposal"))

	a, ok := reg.Find("quoting.render-proposal")
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, a.Timeout.Duration())
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Contains(t, a.ErrorCodes, errors.ErrCodeFolioFailed)
}

func TestActivity_InputValidator(t *testing.T) {
	a, ok := shipped(t).Find("quoting.search-plans")
	require.True(t, ok)
	v, err := a.InputValidator()
	require.NoError(t, err)
	require.NotNil(t, v)

	form := map[string]interface{}{
		"holderAge":  40,
		"health":     "Sano",
		"tier":       "Integral",
		"continuity": "Nuevo",
	}
	res, err := v.Validate(form)
	require.NoError(t, err)
	assert.True(t, res.Valid, "the client name is optional")

	form["holderAge"] = 12
	res, err = v.Validate(form)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Fields(), "holderAge")
}

func TestRecordLeadSchema_AcceptsAnonymousClient(t *testing.T) {
	a, ok := shipped(t).Find("quoting.record-lead")
	require.True(t, ok)
	v, err := a.InputValidator()
	require.NoError(t, err)

	res, err := v.Validate(map[string]interface{}{"client": "", "email": "ana@example.com", "insured": 1})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestTimeout_JSON(t *testing.T) {
	var a Activity
	require.NoError(t, json.Unmarshal([]byte(`{"timeout": "1m30s"}`), &a))
	assert.Equal(t, 90*time.Second, a.Timeout.Duration())

	raw, err := json.Marshal(a.Timeout)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(raw))

	assert.ErrorContains(t, json.Unmarshal([]byte(`{"timeout": "soon"}`), &a), `invalid timeout "soon"`)
	assert.Error(t, json.Unmarshal([]byte(`{"timeout": 30}`), &a))
}

func valid() Activity {
	return Activity{
		ID:          "record-lead",
		DisplayName: "Record Lead",
		TaskType:    "quoting.record-lead",
		Status:      StatusCompleted,
		ErrorCodes:  []errors.ErrorCode{errors.ErrCodeValidationFailed, errors.ErrCodeLeadRecordFailed},
		Timeout:     Timeout(30 * time.Second),
		Retries:     3,
	}
}

func TestActivity_Validate(t *testing.T) {
	ok := valid()
	require.NoError(t, ok.Validate())

	planned := valid()
	planned.Status = StatusPlanned
	planned.Timeout = 0
	assert.NoError(t, planned.Validate())

	cases := map[string]func(a *Activity){
		"missing id":         func(a *Activity) { a.ID = "" },
		"missing name":       func(a *Activity) { a.DisplayName = "" },
		"foreign task type":  func(a *Activity) { a.TaskType = "crm.create-lead" },
		"bare prefix":        func(a *Activity) { a.TaskType = TaskPrefix },
		"unknown status":     func(a *Activity) { a.Status = "beta" },
		"no timeout":         func(a *Activity) { a.Timeout = 0 },
		"negative retries":   func(a *Activity) { a.Retries = -1 },
		"unknown error code": func(a *Activity) { a.ErrorCodes = append(a.ErrorCodes, "PAYMENT_FAILED") },
		"retries without retryable code": func(a *Activity) {
			a.ErrorCodes = []errors.ErrorCode{errors.ErrCodeValidationFailed}
		},
		"bad schema": func(a *Activity) { a.InputSchema = map[string]interface{}{"type": 42} },
	}
	for name, mutate := range cases {
		a := valid()
		mutate(&a)
		assert.Error(t, a.Validate(), name)
	}
}

func TestRegistry_ValidateRejectsDuplicates(t *testing.T) {
	assert.Error(t, (&Registry{}).Validate(), "empty")

	second := valid()
	second.TaskType = "quoting.other"
	assert.ErrorContains(t, (&Registry{Activities: []Activity{valid(), second}}).Validate(), "duplicate activity ID")

	second = valid()
	second.ID = "other"
	assert.ErrorContains(t, (&Registry{Activities: []Activity{valid(), second}}).Validate(), "duplicate task type")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	reg := &Registry{Version: "1.0.0", Activities: []Activity{valid()}}
	require.NoError(t, reg.Save(path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, reg.Activities, loaded.Activities)
	require.NoError(t, loaded.Validate())
	assert.Empty(t, loaded.Missing("quoting.record-lead"))
	assert.Equal(t, []string{"quoting.x"}, loaded.Missing("quoting.record-lead", "quoting.x"))
}
