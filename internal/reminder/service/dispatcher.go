package service

import (
	"context"
	"fmt"
	"slices"
	"text/template"
	"time"

	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	invoicedomain "github.com/smallbiznis/netbill/internal/invoice/domain"
	obslogger "github.com/smallbiznis/netbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/netbill/internal/observability/metrics"
	"github.com/smallbiznis/netbill/internal/providers/messaging"
	"github.com/smallbiznis/netbill/internal/ratelimit"
	"github.com/smallbiznis/netbill/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Config   config.Config
	Settings domain.SettingsRepository
	Invoices invoicedomain.Repository
	Sender   messaging.Sender
	Limiter  ratelimit.Limiter
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Dispatcher struct {
	log      *zap.Logger
	clock    clock.Clock
	loc      *time.Location
	defaults config.ReminderConfig
	settings domain.SettingsRepository
	invoices invoicedomain.Repository
	sender   messaging.Sender
	limiter  ratelimit.Limiter
	metrics  *obsmetrics.Metrics
}

func NewDispatcher(p Params) *Dispatcher {
	return &Dispatcher{
		log:      p.Log.Named("reminder.dispatcher"),
		clock:    p.Clock,
		loc:      p.Config.Location(),
		defaults: p.Config.Reminder,
		settings: p.Settings,
		invoices: p.Invoices,
		sender:   p.Sender,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
	}
}

type reminder struct {
	invoice invoicedomain.Invoice
	offset  int
}

// DispatchInvoiceReminders sends due-date reminders for pending invoices.
// It does nothing unless reminders are enabled and the business-local hour
// matches the configured one. An offset is recorded on the invoice only
// after the channel accepted the message, so no invoice gets the same
// offset twice.
func (d *Dispatcher) DispatchInvoiceReminders(ctx context.Context) (domain.DispatchResult, error) {
	var result domain.DispatchResult

	settings, err := d.loadSettings(ctx)
	if err != nil {
		return result, fmt.Errorf("load reminder settings: %w", err)
	}
	now := d.clock.Now()
	if !settings.Enabled || now.In(d.loc).Hour() != settings.Hour {
		return result, nil
	}
	result.Ran = true

	tmpl, err := parseTemplate(settings.Template)
	if err != nil {
		return result, err
	}

	today := clock.DateOf(now, d.loc)
	for _, offset := range uniqueOffsets(settings.Offsets) {
		target := today.AddDate(0, 0, -offset)
		invoices, err := d.invoices.ListPendingDueOn(ctx, target)
		if err != nil {
			return result, fmt.Errorf("list invoices due %s: %w", target.Format(time.DateOnly), err)
		}

		batch := make([]reminder, 0, len(invoices))
		for _, inv := range invoices {
			if inv.ReminderSent(offset) || messaging.NormalizePhone(inv.Phone) == "" {
				continue
			}
			batch = append(batch, reminder{invoice: inv, offset: offset})
		}
		skipped := len(invoices) - len(batch)
		result.Skipped += skipped
		d.metrics.RecordReminders(ctx, offset, obsmetrics.OutcomeSkipped, skipped)
		if len(batch) == 0 {
			continue
		}

		progress, err := ratelimit.SendWithRateLimit(ctx, d.limiter, batch,
			func(ctx context.Context, r reminder) error { return d.send(ctx, tmpl, r) },
			ratelimit.Options{OnProgress: func(p ratelimit.Progress) {
				obslogger.WithContext(ctx, d.log).Debug("reminder.progress",
					zap.Int("offset", offset),
					zap.Int("done", p.Done),
					zap.Int("total", p.Total),
				)
			}},
		)
		result.Sent += progress.Sent
		result.Failed += progress.Failed
		d.metrics.RecordReminders(ctx, offset, obsmetrics.OutcomeSent, progress.Sent)
		d.metrics.RecordReminders(ctx, offset, obsmetrics.OutcomeFailed, progress.Failed)
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (d *Dispatcher) send(ctx context.Context, tmpl *template.Template, r reminder) error {
	fields := []zap.Field{zap.String("invoice_number", r.invoice.Number), zap.Int("offset", r.offset)}

	message, err := renderMessage(tmpl, r.invoice, r.offset)
	if err != nil {
		obslogger.ItemFailed(ctx, d.log, "render", err, fields...)
		return err
	}
	if err := d.sender.Send(ctx, r.invoice.Phone, message); err != nil {
		obslogger.ItemFailed(ctx, d.log, "send", err, fields...)
		return err
	}
	// The message is out; a failure here can only cause a repeat on the
	// next run, so it is logged and the item still counts as sent.
	if _, err := d.invoices.AppendSentOffset(ctx, r.invoice.ID, r.offset, d.clock.Now()); err != nil {
		obslogger.ItemFailed(ctx, d.log, "record_offset", err, fields...)
	}
	return nil
}

func (d *Dispatcher) loadSettings(ctx context.Context) (domain.Settings, error) {
	settings, found, err := d.settings.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if !found {
		return domain.Settings{
			ID:      domain.SettingsID,
			Enabled: d.defaults.DefaultEnabled,
			Hour:    d.defaults.DefaultHour,
			Offsets: d.defaults.DefaultOffsets,
		}, nil
	}
	if len(settings.Offsets) == 0 {
		settings.Offsets = d.defaults.DefaultOffsets
	}
	return settings, nil
}

func uniqueOffsets(offsets []int) []int {
	out := slices.Clone(offsets)
	slices.Sort(out)
	return slices.Compact(out)
}
