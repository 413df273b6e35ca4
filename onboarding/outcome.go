package onboarding

// Failure attributes one account that was not onboarded. Reason is free text from the remote
// service or the call-level error, kept verbatim.
type Failure struct {
	AccountID string
	Reason    string
}

// SubmissionOutcome accumulates the result of processed batches.
// Every processed batch keeps Succeeded + len(Failed) == Attempted.
type SubmissionOutcome struct {
	Attempted int
	Succeeded int
	Failed    []Failure
}

// Add returns the sum of both outcomes. Neither operand is modified.
func (o SubmissionOutcome) Add(other SubmissionOutcome) SubmissionOutcome {
	failed := make([]Failure, 0, len(o.Failed)+len(other.Failed))
	failed = append(failed, o.Failed...)
	failed = append(failed, other.Failed...)

	return SubmissionOutcome{
		Attempted: o.Attempted + other.Attempted,
		Succeeded: o.Succeeded + other.Succeeded,
		Failed:    failed,
	}
}

// Balanced reports whether the accounting identity holds.
func (o SubmissionOutcome) Balanced() bool {
	return o.Succeeded+len(o.Failed) == o.Attempted
}

// FailedIDs returns the ids of all failed accounts in failure order.
func (o SubmissionOutcome) FailedIDs() []string {
	ids := make([]string, len(o.Failed))
	for i, failure := range o.Failed {
		ids[i] = failure.AccountID
	}

	return ids
}

// batchOutcome settles one batch. Rejections naming accounts outside the batch are dropped and
// returned separately; repeated rejections of the same account count once.
func batchOutcome(batchIDs []string, rejected []Failure) (SubmissionOutcome, []Failure) {
	inBatch := make(map[string]struct{}, len(batchIDs))
	for _, id := range batchIDs {
		inBatch[id] = struct{}{}
	}

	failed := make([]Failure, 0, len(rejected))
	var stray []Failure
	counted := make(map[string]struct{}, len(rejected))

	for _, failure := range rejected {
		if _, ok := inBatch[failure.AccountID]; !ok {
			stray = append(stray, failure)
			continue
		}

		if _, dup := counted[failure.AccountID]; dup {
			continue
		}

		counted[failure.AccountID] = struct{}{}
		failed = append(failed, failure)
	}

	return SubmissionOutcome{
		Attempted: len(batchIDs),
		Succeeded: len(batchIDs) - len(failed),
		Failed:    failed,
	}, stray
}

// batchFailure attributes a call-level error to every account of the batch.
func batchFailure(batchIDs []string, err error) SubmissionOutcome {
	failed := make([]Failure, len(batchIDs))
	for i, id := range batchIDs {
		failed[i] = Failure{AccountID: id, Reason: err.Error()}
	}

	return SubmissionOutcome{
		Attempted: len(batchIDs),
		Succeeded: 0,
		Failed:    failed,
	}
}
