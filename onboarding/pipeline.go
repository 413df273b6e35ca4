package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	logMsgRunStarted      = "onboarding run started"
	logMsgRunAborted      = "onboarding run aborted"
	logMsgDirectoryRead   = "directory accounts discovered"
	logMsgRegistryRead    = "registry members discovered"
	logMsgReconciled      = "onboarding set reconciled"
	logMsgRunCompleted    = "onboarding run completed"
	logMsgInviteCompleted = "invitation pass completed"
)

// DirectoryReader enumerates the active accounts of the organization.
// Errors are fatal for the run and should wrap ErrDirectoryUnavailable.
type DirectoryReader interface {
	ListActiveAccounts(ctx context.Context) ([]Account, error)
}

// RegistryReader enumerates every account id the aggregation service knows, associated or not.
// Errors are fatal for the run and should wrap ErrRegistryUnavailable.
type RegistryReader interface {
	ListKnownAccounts(ctx context.Context) (map[string]struct{}, error)
}

// Pipeline wires the stages of one onboarding run.
type Pipeline struct {
	prober           CapabilityProber
	directory        DirectoryReader
	registry         RegistryReader
	submitter        Submitter
	inviter          *Inviter
	batchSize        int
	now              func() time.Time
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// PipelineOption defines a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline) error

// WithInviter enables the opt-in invitation pass for accounts created during the run.
func WithInviter(inviter Inviter) PipelineOption {
	return func(p *Pipeline) error {
		if inviter.inviter == nil {
			return ErrNilMemberInviter
		}

		p.inviter = &inviter

		return nil
	}
}

// WithBatchSize overrides MaxBatchSize with a smaller batch size.
func WithBatchSize(size int) PipelineOption {
	return func(p *Pipeline) error {
		if size < 1 || size > MaxBatchSize {
			return ErrInvalidBatchSize
		}

		p.batchSize = size

		return nil
	}
}

// WithClock sets the time source used for run timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) error {
		p.now = now
		return nil
	}
}

// WithRunLogger sets the logger for run-level messages.
func WithRunLogger(logger Logger) PipelineOption {
	return func(p *Pipeline) error {
		p.logger = logger
		return nil
	}
}

// WithRunContextualLogger sets the contextual logger for run-level messages.
func WithRunContextualLogger(logger ContextualLogger) PipelineOption {
	return func(p *Pipeline) error {
		p.contextualLogger = logger
		return nil
	}
}

// WithRunMetrics sets the metrics collector for run-level metrics.
func WithRunMetrics(collector MetricsCollector) PipelineOption {
	return func(p *Pipeline) error {
		p.metricsCollector = collector
		return nil
	}
}

// WithRunTracing sets the tracing collector; the whole run becomes one span.
func WithRunTracing(collector TracingCollector) PipelineOption {
	return func(p *Pipeline) error {
		p.tracingCollector = collector
		return nil
	}
}

// NewPipeline creates a Pipeline from its collaborators.
func NewPipeline(
	prober CapabilityProber,
	directory DirectoryReader,
	registry RegistryReader,
	submitter Submitter,
	options ...PipelineOption,
) (*Pipeline, error) {

	switch {
	case prober == nil:
		return nil, ErrNilCapabilityProber
	case directory == nil:
		return nil, ErrNilDirectoryReader
	case registry == nil:
		return nil, ErrNilRegistryReader
	case submitter.creator == nil:
		return nil, ErrNilSubmitter
	}

	p := &Pipeline{
		prober:    prober,
		directory: directory,
		registry:  registry,
		submitter: submitter,
		batchSize: MaxBatchSize,
		now:       time.Now,
	}

	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run executes one complete onboarding run.
//
// Fatal preconditions (service not enabled, directory or registry unavailable) abort the run
// before anything is submitted and no summary is produced. Once submission started, the run
// always completes and account failures are reported in the summary.
func (p *Pipeline) Run(ctx context.Context, meta RunMeta) (Summary, error) {
	if meta.DelegatedAdminID == "" {
		return Summary{}, ErrEmptyDelegatedAdmin
	}

	if meta.RunID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Summary{}, fmt.Errorf("generate run id: %w", err)
		}
		meta.RunID = id.String()
	}

	meta.StartedAt = p.now()

	ctx, span := p.startRunSpan(ctx, meta)
	p.logInfo(ctx, logMsgRunStarted, logAttrRunID, meta.RunID)

	summary, err := p.run(ctx, meta)
	if err != nil {
		p.logError(ctx, logMsgRunAborted, err, logAttrRunID, meta.RunID)
		p.finishRunSpan(span, StatusError, nil)

		return Summary{}, err
	}

	status := StatusSuccess
	if summary.HasFailures() {
		status = StatusPartial
	}

	p.logInfo(ctx, logMsgRunCompleted,
		logAttrRunID, meta.RunID,
		logAttrSucceeded, summary.Succeeded,
		logAttrFailed, len(summary.Failed),
	)
	p.finishRunSpan(span, status, map[string]string{
		spanAttrFailed: strconv.Itoa(len(summary.Failed)),
	})

	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, meta RunMeta) (Summary, error) {
	if err := p.prober.Probe(ctx).AsError(); err != nil {
		return Summary{}, err
	}

	accounts, err := p.directory.ListActiveAccounts(ctx)
	if err != nil {
		return Summary{}, wrapFatal(ErrDirectoryUnavailable, err)
	}
	p.logInfo(ctx, logMsgDirectoryRead, logAttrCount, len(accounts))

	knownIDs, err := p.registry.ListKnownAccounts(ctx)
	if err != nil {
		return Summary{}, wrapFatal(ErrRegistryUnavailable, err)
	}
	p.logInfo(ctx, logMsgRegistryRead, logAttrCount, len(knownIDs))

	result := Reconcile(accounts, knownIDs, meta.DelegatedAdminID)
	p.logInfo(ctx, logMsgReconciled, logAttrCount, len(result.OnboardSet))
	p.recordOnboardSetSize(ctx, len(result.OnboardSet))

	outcome := p.submitter.Submit(ctx, Batch(result.OnboardRequests(), p.batchSize))

	meta.FinishedAt = p.now()
	summary := NewSummary(meta, result, outcome)

	if p.inviter != nil {
		invited := p.inviter.InviteBatches(ctx, Batch(createdIDs(result, outcome), p.batchSize))
		p.logInfo(ctx, logMsgInviteCompleted, logAttrSucceeded, invited.Succeeded, logAttrFailed, len(invited.Failed))

		summary = summary.WithInvitations(invited)
		summary.FinishedAt = p.now()
	}

	return summary, nil
}

// createdIDs returns the ids of the onboarding set that did not fail, in onboarding order.
func createdIDs(result ReconciliationResult, outcome SubmissionOutcome) []string {
	failed := make(map[string]struct{}, len(outcome.Failed))
	for _, failure := range outcome.Failed {
		failed[failure.AccountID] = struct{}{}
	}

	ids := make([]string, 0, len(result.OnboardSet))
	for _, account := range result.OnboardSet {
		if _, ok := failed[account.ID]; ok {
			continue
		}
		ids = append(ids, account.ID)
	}

	return ids
}

func wrapFatal(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}

func (p *Pipeline) logInfo(ctx context.Context, msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.InfoContext(ctx, msg, args...)
	}
}

func (p *Pipeline) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if p.logger != nil {
		p.logger.Error(msg, allArgs...)
	}

	if p.contextualLogger != nil {
		p.contextualLogger.ErrorContext(ctx, msg, allArgs...)
	}
}

func (p *Pipeline) recordOnboardSetSize(ctx context.Context, size int) {
	if p.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operationCreateMembers}

	if contextualCollector, ok := p.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, MetricOnboardSetSize, float64(size), labels)
		return
	}

	p.metricsCollector.RecordValue(MetricOnboardSetSize, float64(size), labels)
}

func (p *Pipeline) startRunSpan(ctx context.Context, meta RunMeta) (context.Context, SpanContext) {
	if p.tracingCollector == nil {
		return ctx, nil
	}

	return p.tracingCollector.StartSpan(ctx, spanNameRun, map[string]string{spanAttrRunID: meta.RunID})
}

func (p *Pipeline) finishRunSpan(span SpanContext, status string, attrs map[string]string) {
	if p.tracingCollector == nil || span == nil {
		return
	}

	p.tracingCollector.FinishSpan(span, status, attrs)
}
