// Package spies provides observability test doubles that capture log records, metrics and
// tracing calls so tests can assert on the instrumentation of the onboarding pipeline.
package spies
