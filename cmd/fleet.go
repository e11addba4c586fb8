package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	coremqtt "github.com/kilianp07/bussim/core/mqtt"
	"github.com/kilianp07/bussim/simulator"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the buses a run would start and their topics",
	RunE:  runFleetLs,
}

func init() {
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "DRIVER\tROUTE\tTOPIC\tMESSAGES\tLAST STATUS"); err != nil {
		return err
	}
	for _, b := range simulator.GenerateFleet(cfg.Simulation.Fleet()) {
		topic := coremqtt.LocationTopic(b.TopicPrefix, b.DriverID)
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", b.DriverID, b.RouteID, topic, b.Iterations, b.TerminalStatus); err != nil {
			return err
		}
	}
	return w.Flush()
}
