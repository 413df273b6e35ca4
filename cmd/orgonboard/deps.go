package main

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cloudsecops/orgonboard/internal/config"
	"github.com/cloudsecops/orgonboard/internal/ledger"
	"github.com/cloudsecops/orgonboard/internal/telemetry"
	"github.com/cloudsecops/orgonboard/onboarding"
	"github.com/cloudsecops/orgonboard/onboarding/awsengine"
	"github.com/cloudsecops/orgonboard/onboarding/runstore"
)

// target names the delegated administrator and the role to elevate into.
type target struct {
	adminID     string
	roleName    string
	region      string
	sessionName string
}

// awsClients are the API clients of one run. The management account clients use the ambient
// credentials, the Security Hub client uses the elevated session.
type awsClients struct {
	organizations awsengine.OrganizationsAPI
	stsClient     awsengine.STSAPI
	securityHub   awsengine.SecurityHubAPI
	close         func()
}

type runLedger interface {
	Record(ctx context.Context, summary onboarding.Summary) error
	Recent(ctx context.Context, limit int) ([]runstore.RunRecord, error)
	Close()
}

type deps struct {
	connect       func(ctx context.Context, t target) (awsClients, error)
	openLedger    func(ctx context.Context, cfg config.Config, logger onboarding.Logger) (runLedger, error)
	openTelemetry func(ctx context.Context, endpoint string) (*telemetry.Providers, error)
}

func defaultDeps() deps {
	return deps{
		connect:       connectAWS,
		openLedger:    openLedger,
		openTelemetry: openTelemetry,
	}
}

func connectAWS(ctx context.Context, t target) (awsClients, error) {
	base, err := awsengine.LoadBaseConfig(ctx, t.region)
	if err != nil {
		return awsClients{}, err
	}

	session, err := awsengine.AssumeRole(ctx, base, t.adminID, t.roleName, t.sessionName)
	if err != nil {
		return awsClients{}, err
	}

	return awsClients{
		organizations: organizations.NewFromConfig(base),
		stsClient:     sts.NewFromConfig(base),
		securityHub:   securityhub.NewFromConfig(session.Config()),
		close:         session.Close,
	}, nil
}

func openLedger(ctx context.Context, cfg config.Config, logger onboarding.Logger) (runLedger, error) {
	return ledger.Open(ctx, cfg.LedgerDriver, cfg.LedgerDSN, logger)
}

func openTelemetry(ctx context.Context, endpoint string) (*telemetry.Providers, error) {
	return telemetry.NewProviders(ctx, endpoint, version)
}
