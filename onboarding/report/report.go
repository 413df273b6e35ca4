package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// DefaultMaxFailures is how many failures WriteText lists before truncating.
const DefaultMaxFailures = 10

const (
	header    = "----- SUMMARY -----"
	truncated = "  ... (truncated)"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteText renders the human summary. At most maxFailures failures are listed per section;
// a non-positive maxFailures means DefaultMaxFailures.
func WriteText(w io.Writer, summary onboarding.Summary, maxFailures int) error {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}

	var b strings.Builder

	b.WriteString(header + "\n")
	line(&b, "Run id:", summary.RunID)
	line(&b, "Delegated admin account:", summary.DelegatedAdminID)
	line(&b, "Management account:", summary.ManagementAccountID)
	line(&b, "Region:", summary.Region)
	line(&b, "Directory accounts:", summary.DirectoryCount)
	line(&b, "Existing known members:", summary.RegistryCount)
	line(&b, "Requested create:", summary.Requested)
	line(&b, "Successfully created:", summary.Succeeded)
	writeFailures(&b, "Unprocessed", summary.Failed, maxFailures)

	if summary.InviteRan {
		line(&b, "Invitations sent:", summary.Invited)
		writeFailures(&b, "Invitations not sent", summary.InviteFailed, maxFailures)
	}

	if !summary.StartedAt.IsZero() && !summary.FinishedAt.IsZero() {
		line(&b, "Duration:", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	}

	_, err := io.WriteString(w, b.String())

	return err
}

func line(b *strings.Builder, label string, value any) {
	fmt.Fprintf(b, "%-25s%v\n", label, value)
}

func writeFailures(b *strings.Builder, title string, failures []onboarding.Failure, maxFailures int) {
	if len(failures) == 0 {
		return
	}

	fmt.Fprintf(b, "%s (%d):\n", title, len(failures))
	for i, failure := range failures {
		if i == maxFailures {
			b.WriteString(truncated + "\n")
			break
		}
		fmt.Fprintf(b, "  - %s :: %s\n", failure.AccountID, failure.Reason)
	}
}

// Document is the JSON shape of a summary.
type Document struct {
	RunID               string    `json:"run_id"`
	DelegatedAdminID    string    `json:"delegated_admin_account_id"`
	ManagementAccountID string    `json:"management_account_id,omitempty"`
	Region              string    `json:"region"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	DirectoryCount      int       `json:"directory_count"`
	RegistryCount       int       `json:"registry_count"`
	Requested           int       `json:"requested"`
	Attempted           int       `json:"attempted"`
	Succeeded           int       `json:"succeeded"`
	Failed              []Failure `json:"failed"`
	Invite              *Invite   `json:"invite,omitempty"`
}

// Failure is the JSON shape of one failed account.
type Failure struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

// Invite is the JSON shape of the invitation pass.
type Invite struct {
	Invited int       `json:"invited"`
	Failed  []Failure `json:"failed"`
}

// NewDocument converts a summary into its JSON shape. Failure lists are never null.
func NewDocument(summary onboarding.Summary) Document {
	doc := Document{
		RunID:               summary.RunID,
		DelegatedAdminID:    summary.DelegatedAdminID,
		ManagementAccountID: summary.ManagementAccountID,
		Region:              summary.Region,
		StartedAt:           summary.StartedAt,
		FinishedAt:          summary.FinishedAt,
		DirectoryCount:      summary.DirectoryCount,
		RegistryCount:       summary.RegistryCount,
		Requested:           summary.Requested,
		Attempted:           summary.Attempted,
		Succeeded:           summary.Succeeded,
		Failed:              toFailures(summary.Failed),
	}

	if summary.InviteRan {
		doc.Invite = &Invite{Invited: summary.Invited, Failed: toFailures(summary.InviteFailed)}
	}

	return doc
}

// WriteJSON renders the summary as one indented JSON document followed by a newline.
func WriteJSON(w io.Writer, summary onboarding.Summary) error {
	encoded, err := json.MarshalIndent(NewDocument(summary), "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	_, err = w.Write(append(encoded, '\n'))

	return err
}

func toFailures(failures []onboarding.Failure) []Failure {
	out := make([]Failure, len(failures))
	for i, failure := range failures {
		out[i] = Failure{AccountID: failure.AccountID, Reason: failure.Reason}
	}

	return out
}
