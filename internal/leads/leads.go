// Package leads records every client quote request to one or more sinks.
package leads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
	"cotizador/internal/models"
)

// Recorder persists one lead. Leads are write-once.
type Recorder interface {
	Record(ctx context.Context, lead models.Lead) error
}

// Header is the fixed column schema of the lead history file.
var Header = []string{
	"Fecha", "Cliente", "Correo", "Celular", "Edad_Titular", "Salud",
	"Cobertura_Interes", "Condicion", "Clinicas_Preferidas", "Total_Asegurados", "Rol_Cotizador",
}

// TimestampLayout is the Fecha column format.
const TimestampLayout = "02/01/2006 15:04:05"

// Row renders a lead in Header order.
func Row(l models.Lead) []string {
	return []string{
		l.Timestamp.Format(TimestampLayout),
		l.Client,
		l.Email,
		l.Phone,
		strconv.Itoa(l.HolderAge),
		string(l.Health),
		string(l.Tier),
		string(l.Continuity),
		strings.Join(l.Clinics, ", "),
		strconv.Itoa(l.Insured),
		l.Role,
	}
}

// Named pairs a recorder with the sink name used in logs and metrics.
type Named struct {
	Name     string
	Recorder Recorder
}

// Multi fans a lead out to every sink. All sinks are attempted; the
// failures are joined.
type Multi struct {
	sinks []Named
	log   logger.Logger
}

func NewMulti(log logger.Logger, sinks ...Named) *Multi {
	return &Multi{
		sinks: sinks,
		log:   log.WithFields(map[string]interface{}{"component": "leads"}),
	}
}

func (m *Multi) Record(ctx context.Context, lead models.Lead) error {
	var errs []error
	for _, s := range m.sinks {
		start := time.Now()
		if err := s.Recorder.Record(ctx, lead); err != nil {
			metrics.LeadsRecorded.WithLabelValues(s.Name, "failed").Inc()
			m.log.Error("Failed to record lead", map[string]interface{}{
				"sink":  s.Name,
				"error": err.Error(),
			})
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		metrics.LeadsRecorded.WithLabelValues(s.Name, "recorded").Inc()
		m.log.Debug("Lead recorded", map[string]interface{}{
			"sink":     s.Name,
			"leadId":   lead.ID,
			"duration": time.Since(start).String(),
		})
	}
	return errors.Join(errs...)
}

// Sinks lists the configured sink names.
func (m *Multi) Sinks() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}
