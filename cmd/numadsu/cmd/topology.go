package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/numa-dsu/internal/service"
	"github.com/numa-dsu/pkg/numa"
)

// topologyCmd represents the topology command
var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show the NUMA layout and thread placement",
	RunE:  runTopology,
}

func init() {
	rootCmd.AddCommand(topologyCmd)
	topologyCmd.Flags().IntVar(&nodesFlag, "nodes", 0, "Simulate this many NUMA nodes (0 detects)")
	topologyCmd.Flags().IntVarP(&threadsFlag, "threads", "t", 0, "Worker threads (0 uses every CPU)")
}

func runTopology(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	topo, err := numa.NewTopology(service.TopologyConfig(cfg, GetLogger()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "CPUs: %d, nodes: %d, threads: %d, placement: %s\n",
		runtime.NumCPU(), topo.NodeCount(), topo.MaxConcurrency(), topo.Placement())
	for _, n := range topo.Nodes() {
		fmt.Fprintf(out, "node %d: cpus %v threads %v\n", n.ID, n.CPUs, topo.ThreadsOnNode(n.ID))
	}
	return nil
}
