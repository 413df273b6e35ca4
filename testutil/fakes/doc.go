// Package fakes provides in-memory collaborators for the onboarding pipeline: scripted bulk-call
// clients, a stateful aggregation-service registry, directory and probe stubs, a pacing recorder,
// and scripted Organizations, Security Hub and STS API clients for the awsengine package.
package fakes
