// Package onboarding reconciles the account directory of a cloud organization with the
// member registry of a security-aggregation service and onboards the missing accounts in bulk.
//
// The package holds the functional core of the pipeline and the dependency-free contracts
// its collaborators have to satisfy. Concrete collaborators for AWS Organizations, Security Hub
// and STS live in the awsengine subpackage.
//
// Pipeline stages:
//   - DirectoryReader: active accounts of the organization
//   - RegistryReader: account ids already known to the aggregation service (associated or not)
//   - Reconcile: directory minus registry minus the delegated administrator
//   - Batch: lazy, order-preserving chunks of at most MaxBatchSize
//   - Submitter: sequential bulk onboarding with partial-failure accounting and fixed pacing
//   - NewSummary: flat result record for reporting
//
// Common usage pattern:
//
//	result := onboarding.Reconcile(accounts, knownIDs, delegatedAdminID)
//
//	submitter, err := onboarding.NewSubmitter(creator, onboarding.WithPacing(250*time.Millisecond))
//	if err != nil {
//		// handle error
//	}
//
//	outcome := submitter.Submit(ctx, onboarding.Batch(result.OnboardRequests(), onboarding.MaxBatchSize))
//	summary := onboarding.NewSummary(meta, result, outcome)
package onboarding
