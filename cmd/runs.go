package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sca-traffic/sca-mcs/sim/store"
)

// runsCmd lists the runs recorded in a SQLite history
var runsCmd = &cobra.Command{
	Use:   "runs <db>",
	Short: "List simulation runs recorded with --db",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := listRuns(args[0], os.Stdout); err != nil {
			logrus.Fatalf("listing runs: %v", err)
		}
	},
}

func listRuns(path string, w io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSEED\tMODE\tN\tJOINT\tJOINT RATE\tBIASED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%.6f\t%t\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Seed, r.Mode, r.NumSamples, r.JointEvents, r.JointRate, r.Biased)
	}
	return tw.Flush()
}
