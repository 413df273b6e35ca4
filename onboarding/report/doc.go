// Package report renders the summary of an onboarding run, as aligned text for people
// and as JSON for pipelines, and the ledger history as a table.
package report
