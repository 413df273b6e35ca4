package main

import (
	"github.com/cloudsecops/orgonboard/internal/config"
	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/awsengine"
)

// observers are the logging, metrics and tracing sinks of a run. Only logger is always set.
type observers struct {
	logger     onboarding.Logger
	contextual onboarding.ContextualLogger
	metrics    onboarding.MetricsCollector
	tracing    onboarding.TracingCollector
}

func (o observers) engineOptions(cfg config.Config) []awsengine.Option {
	options := []awsengine.Option{
		awsengine.WithPageSize(cfg.PageSize),
		awsengine.WithMaxAttempts(cfg.ThrottleMaxAttempts),
		awsengine.WithBaseDelay(cfg.ThrottleBaseDelay),
		awsengine.WithLogger(o.logger),
	}
	if o.metrics != nil {
		options = append(options, awsengine.WithMetrics(o.metrics))
	}

	return options
}

func (o observers) batchOptions(cfg config.Config) []onboarding.Option {
	options := []onboarding.Option{
		onboarding.WithPacing(cfg.BatchPacing),
		onboarding.WithLogger(o.logger),
	}
	if o.contextual != nil {
		options = append(options, onboarding.WithContextualLogger(o.contextual))
	}
	if o.metrics != nil {
		options = append(options, onboarding.WithMetrics(o.metrics))
	}
	if o.tracing != nil {
		options = append(options, onboarding.WithTracing(o.tracing))
	}

	return options
}

func (o observers) runOptions() []onboarding.PipelineOption {
	options := []onboarding.PipelineOption{onboarding.WithRunLogger(o.logger)}
	if o.contextual != nil {
		options = append(options, onboarding.WithRunContextualLogger(o.contextual))
	}
	if o.metrics != nil {
		options = append(options, onboarding.WithRunMetrics(o.metrics))
	}
	if o.tracing != nil {
		options = append(options, onboarding.WithRunTracing(o.tracing))
	}

	return options
}

// buildPipeline wires the AWS backed stages into an onboarding pipeline.
func buildPipeline(cfg config.Config, clients awsClients, o observers) (*onboarding.Pipeline, error) {
	directory, err := awsengine.NewDirectoryReader(clients.organizations, o.engineOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	registry, err := awsengine.NewRegistry(clients.securityHub, o.engineOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	submitter, err := onboarding.NewSubmitter(registry, o.batchOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	runOptions := o.runOptions()
	if cfg.Invite {
		inviter, err := onboarding.NewInviter(registry, o.batchOptions(cfg)...)
		if err != nil {
			return nil, err
		}
		runOptions = append(runOptions, onboarding.WithInviter(inviter))
	}

	return onboarding.NewPipeline(registry, directory, registry, submitter, runOptions...)
}
