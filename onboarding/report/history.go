package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cloudsecops/orgonboard/onboarding/runstore"
)

const historyHeader = "RUN ID\tSTARTED\tADMIN\tREGION\tREQUESTED\tCREATED\tFAILED\tINVITED"

// WriteHistory renders ledger records as an aligned table, newest first as given.
func WriteHistory(w io.Writer, records []runstore.RunRecord) error {
	if len(records) == 0 {
		_, err := io.WriteString(w, "no recorded runs\n")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, historyHeader); err != nil {
		return err
	}

	for _, record := range records {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			record.RunID,
			record.StartedAt.UTC().Format(time.RFC3339),
			record.DelegatedAdminID,
			record.Region,
			record.Requested,
			record.Succeeded,
			record.FailedCount,
			record.Invited,
		)
		if err != nil {
			return err
		}
	}

	return tw.Flush()
}
