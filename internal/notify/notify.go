// Package notify alerts the brokerage when a client requests a quote.
// Delivery is best-effort: failures are logged and never block quoting.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cotizador/internal/common/logger"
	"cotizador/internal/common/metrics"
	"cotizador/internal/models"
)

// ErrNotConfigured marks a skipped delivery: the mail password is still
// the placeholder value.
var ErrNotConfigured = errors.New("notification channel not configured")

// Message is a plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMS delivers one text message to a phone number.
type SMS interface {
	SendSMS(ctx context.Context, phone, text string) error
}

// Options configures a Notifier.
type Options struct {
	Channel       string
	From          string
	Recipients    []string
	SMSRecipients []string
	Timeout       time.Duration
}

// Notifier sends the lead alert by email and, optionally, by SMS.
type Notifier struct {
	mailer Mailer
	sms    SMS
	opts   Options
	log    logger.Logger
	now    func() time.Time
}

// NewNotifier creates a notifier. mailer and sms may be nil to disable
// the channel.
func NewNotifier(mailer Mailer, sms SMS, opts Options, log logger.Logger) *Notifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Channel == "" {
		opts.Channel = "smtp"
	}
	return &Notifier{
		mailer: mailer,
		sms:    sms,
		opts:   opts,
		log:    log.WithFields(map[string]interface{}{"component": "notify"}),
		now:    time.Now,
	}
}

// NotifyLead sends the alert on every configured channel and returns the
// joined delivery errors. Callers log and continue.
func (n *Notifier) NotifyLead(ctx context.Context, lead models.Lead) error {
	ctx, cancel := context.WithTimeout(ctx, n.opts.Timeout)
	defer cancel()

	var errs []error

	if n.mailer != nil && len(n.opts.Recipients) > 0 {
		msg := Message{
			From:    n.opts.From,
			To:      n.opts.Recipients,
			Subject: Subject(lead),
			Body:    Body(lead, n.now()),
		}
		err := n.mailer.Send(ctx, msg)
		switch {
		case errors.Is(err, ErrNotConfigured):
			metrics.NotificationsSent.WithLabelValues(n.opts.Channel, "skipped").Inc()
			n.log.Warn("Lead email not sent: mail password not configured", map[string]interface{}{
				"client": lead.Client,
			})
		case err != nil:
			metrics.NotificationsSent.WithLabelValues(n.opts.Channel, "failed").Inc()
			n.log.Error("Failed to send lead email", map[string]interface{}{
				"client": lead.Client,
				"error":  err.Error(),
			})
			errs = append(errs, fmt.Errorf("email: %w", err))
		default:
			metrics.NotificationsSent.WithLabelValues(n.opts.Channel, "sent").Inc()
			n.log.Info("Lead email sent", map[string]interface{}{
				"client":     lead.Client,
				"recipients": len(msg.To),
			})
		}
	}

	if n.sms != nil {
		text := SMSText(lead)
		for _, phone := range n.opts.SMSRecipients {
			if err := n.sms.SendSMS(ctx, phone, text); err != nil {
				metrics.NotificationsSent.WithLabelValues("sns", "failed").Inc()
				n.log.Error("Failed to send lead SMS", map[string]interface{}{
					"phone": phone,
					"error": err.Error(),
				})
				errs = append(errs, fmt.Errorf("sms %s: %w", phone, err))
				continue
			}
			metrics.NotificationsSent.WithLabelValues("sns", "sent").Inc()
		}
	}

	return errors.Join(errs...)
}

// Subject is the alert subject line.
func Subject(l models.Lead) string {
	return "NUEVO LEAD (COTIZADOR): " + l.Client
}

// Body is the alert text.
func Body(l models.Lead, now time.Time) string {
	clinics := strings.Join(l.Clinics, ", ")
	if clinics == "" {
		clinics = "Sin preferencia específica"
	}

	var b strings.Builder
	b.WriteString("Hola Administración,\n\n")
	b.WriteString("Se ha generado una nueva cotización en el sistema.\n")
	b.WriteString("¡Llama ahora mismo!\n\n")
	b.WriteString("DATOS DEL CLIENTE:\n")
	b.WriteString("------------------------------------------------\n")
	fmt.Fprintf(&b, "Nombre: %s\n", l.Client)
	fmt.Fprintf(&b, "Correo: %s\n", l.Email)
	fmt.Fprintf(&b, "WhatsApp: %s\n", l.Phone)
	b.WriteString("------------------------------------------------\n\n")
	b.WriteString("DATOS DE LA COTIZACIÓN:\n")
	b.WriteString("------------------------------------------------\n")
	fmt.Fprintf(&b, "Edad Titular: %d años\n", l.HolderAge)
	fmt.Fprintf(&b, "Interés (Cobertura): %s\n", l.Tier)
	fmt.Fprintf(&b, "Condición: %s\n", l.Continuity)
	fmt.Fprintf(&b, "Clínicas Preferidas: %s\n", clinics)
	fmt.Fprintf(&b, "Total Asegurados (Familia): %d\n", l.Insured)
	b.WriteString("------------------------------------------------\n\n")
	fmt.Fprintf(&b, "Fecha y hora de cotización: %s\n", now.Format("02/01/2006 15:04"))
	return b.String()
}

// SMSText is the short advisor alert.
func SMSText(l models.Lead) string {
	return fmt.Sprintf("Nuevo lead: %s (%s) - %s, %d asegurado(s)", l.Client, l.Phone, l.Tier, l.Insured)
}
