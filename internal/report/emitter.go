// Package report turns scan reports into display text and hands them to
// every configured sink: chat notifications, the report store, the object
// archive and the signal bus.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/sharpline/internal/domain"
	"github.com/alanyoungcy/sharpline/internal/notify"
)

// RenderedEvent is one event's findings with labels and text blocks.
// ValueBetText and ArbText are empty when there is nothing to show.
type RenderedEvent struct {
	Result       domain.EventResult
	Labels       Labels
	ValueBetText string
	ArbText      string
}

// Rendered is a scan report prepared for delivery.
type Rendered struct {
	Report *domain.ScanReport
	Events []RenderedEvent
}

// Sink receives every rendered report.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r *Rendered) error
}

// FailureSink is implemented by sinks that also announce failed scans.
type FailureSink interface {
	DeliverFailure(ctx context.Context, scanErr error) error
}

// Emitter renders reports and fans them out to sinks. A failing sink is
// logged and does not stop the others.
type Emitter struct {
	labels domain.LabelResolver
	sinks  []Sink
	logger *slog.Logger
}

// NewEmitter creates an Emitter. labels may be nil.
func NewEmitter(labels domain.LabelResolver, sinks []Sink, logger *slog.Logger) *Emitter {
	return &Emitter{
		labels: labels,
		sinks:  sinks,
		logger: logger.With(slog.String("component", "report_emitter")),
	}
}

// Render resolves labels and builds the text blocks for report.
func (e *Emitter) Render(ctx context.Context, report *domain.ScanReport) *Rendered {
	r := &Rendered{Report: report, Events: make([]RenderedEvent, 0, len(report.Results))}
	for _, res := range report.Results {
		re := RenderedEvent{Result: res, Labels: resolveLabels(ctx, e.labels, res.Event)}
		if len(res.ValueBets) > 0 {
			re.ValueBetText = RenderValueBets(re.Labels, res.ValueBets)
		}
		if len(res.Arbs) > 0 {
			re.ArbText = RenderArbs(re.Labels, res.Arbs)
		}
		r.Events = append(r.Events, re)
	}
	return r
}

// Emit renders report and delivers it to every sink. The returned error
// joins all sink failures.
func (e *Emitter) Emit(ctx context.Context, report *domain.ScanReport) error {
	r := e.Render(ctx, report)
	var errs []error
	for _, s := range e.sinks {
		if err := s.Deliver(ctx, r); err != nil {
			e.logger.WarnContext(ctx, "report sink failed",
				slog.String("sink", s.Name()),
				slog.String("scan_id", report.ID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("report: %w", errors.Join(errs...))
	}
	e.logger.DebugContext(ctx, "report emitted",
		slog.String("scan_id", report.ID),
		slog.Int("sinks", len(e.sinks)),
	)
	return nil
}

// EmitFailure tells failure-aware sinks that a scan did not complete.
func (e *Emitter) EmitFailure(ctx context.Context, scanErr error) error {
	var errs []error
	for _, s := range e.sinks {
		fs, ok := s.(FailureSink)
		if !ok {
			continue
		}
		if err := fs.DeliverFailure(ctx, scanErr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("report: %w", errors.Join(errs...))
	}
	return nil
}

// Notifier is the subset of notify.Notifier the emitter uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// NotifySink sends one message per event and finding kind.
type NotifySink struct {
	n Notifier
}

// NewNotifySink wraps n.
func NewNotifySink(n Notifier) *NotifySink { return &NotifySink{n: n} }

func (s *NotifySink) Name() string { return "notify" }

func (s *NotifySink) Deliver(ctx context.Context, r *Rendered) error {
	var errs []error
	for _, ev := range r.Events {
		if ev.ValueBetText != "" {
			if err := s.n.Notify(ctx, notify.EventPositiveEV, "Positive EV", ev.ValueBetText); err != nil {
				errs = append(errs, err)
			}
		}
		if ev.ArbText != "" {
			if err := s.n.Notify(ctx, notify.EventArbitrage, "Arbitrage", ev.ArbText); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *NotifySink) DeliverFailure(ctx context.Context, scanErr error) error {
	return s.n.Notify(ctx, notify.EventScanFailed, "Scan failed", scanErr.Error())
}

// StoreSink persists reports for the read API.
type StoreSink struct {
	store domain.ReportStore
}

// NewStoreSink wraps store.
func NewStoreSink(store domain.ReportStore) *StoreSink { return &StoreSink{store: store} }

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Deliver(ctx context.Context, r *Rendered) error {
	return s.store.SaveReport(ctx, r.Report)
}

// ArchiveSink writes reports to object storage.
type ArchiveSink struct {
	archiver domain.ReportArchiver
	logger   *slog.Logger
}

// NewArchiveSink wraps archiver.
func NewArchiveSink(archiver domain.ReportArchiver, logger *slog.Logger) *ArchiveSink {
	return &ArchiveSink{archiver: archiver, logger: logger}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) Deliver(ctx context.Context, r *Rendered) error {
	path, err := s.archiver.ArchiveReport(ctx, r.Report)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "report archived",
		slog.String("scan_id", r.Report.ID),
		slog.String("path", path),
	)
	return nil
}

// BusSink publishes each finding on the signal bus and appends the run
// summary to the scan stream.
type BusSink struct {
	bus domain.SignalBus
}

// NewBusSink wraps bus.
func NewBusSink(bus domain.SignalBus) *BusSink { return &BusSink{bus: bus} }

func (s *BusSink) Name() string { return "bus" }

func (s *BusSink) Deliver(ctx context.Context, r *Rendered) error {
	detectedAt := r.Report.FinishedAt
	var errs []error
	publish := func(channel string, v any) {
		payload, err := json.Marshal(v)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if err := s.bus.Publish(ctx, channel, payload); err != nil {
			errs = append(errs, err)
		}
	}

	for _, ev := range r.Events {
		for _, b := range ev.Result.ValueBets {
			publish(domain.ChannelValueBets, domain.StoredValueBet{ScanID: r.Report.ID, DetectedAt: detectedAt, PositiveEVBet: b})
		}
		for _, a := range ev.Result.Arbs {
			publish(domain.ChannelArbs, domain.StoredArb{ScanID: r.Report.ID, DetectedAt: detectedAt, ArbitrageCombination: a})
		}
	}

	summary, err := json.Marshal(r.Report.Summary())
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := s.bus.Publish(ctx, domain.ChannelScans, summary); err != nil {
		errs = append(errs, err)
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamScans, summary); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Compile-time interface checks.
var (
	_ Sink        = (*NotifySink)(nil)
	_ FailureSink = (*NotifySink)(nil)
	_ Sink        = (*StoreSink)(nil)
	_ Sink        = (*ArchiveSink)(nil)
	_ Sink        = (*BusSink)(nil)
)
