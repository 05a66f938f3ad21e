package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/numa-dsu/internal/bench"
	"github.com/numa-dsu/internal/service"
)

var verifyVariants string

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check variants against the sequential reference",
	Long: `Run each variant once on the configured workload and compare the
representative of every vertex with the sequential reference Union-Find.
Exits non-zero if any variant disagrees.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addWorkloadFlags(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyVariants, "variants", service.VariantsAll, "Variant set: config or all")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	sess, err := runSession(cmd, cfg, verifyVariants, "", bench.Config{Repetitions: 1, Verify: true}, false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range sess.Results {
		status := "ok"
		if !r.Verify.OK() {
			status = fmt.Sprintf("FAILED (%d of %d vertices differ, first %d)",
				r.Verify.Mismatches, r.Verify.Checked, r.Verify.FirstMismatch)
		}
		fmt.Fprintf(out, "%-40s %s (%d components)\n", r.Algorithm, status, r.Verify.Components)
	}
	if failed := sess.Failed(); len(failed) > 0 {
		return fmt.Errorf("verification failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
