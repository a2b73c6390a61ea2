package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"napsidx/internal/app"
	"napsidx/internal/infrastructure"
	"napsidx/internal/operations"
)

// cli holds the flags shared by every command
type cli struct {
	configFile string
	years      []int
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "napsidx",
		Short: "Index and normalize the NAPS PM2.5 speciation archive",
		Long: `napsidx walks the NAPS integrated PM2.5 speciation archive, builds a
master index of which analytes each site measured per year, corrects it and
extracts normalized per-site CSVs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       infrastructure.ServiceVersion,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "configuration file (default: config.yaml or configs/config.yaml)")
	root.PersistentFlags().IntSliceVar(&c.years, "year", nil, "restrict to these years (default: configured range)")

	root.AddCommand(
		c.stepCmd(operations.StepIDStations, "Extract the station metadata CSV"),
		c.stepCmd(operations.StepIDIndex, "Build the master index from the archive"),
		c.stepCmd(operations.StepIDCorrect, "Apply frequency checks and manual corrections to the index"),
		c.stepCmd(operations.StepIDExtract, "Extract per-site normalized speciation CSVs"),
		c.stepCmd(operations.StepIDCatalog, "Load the corrected index and stations into the SQLite catalog"),
		c.apportionCmd(),
		c.continuousCmd(),
		c.coverageCmd(),
		c.runCmd(),
		c.serveCmd(),
		newResolveCmd(),
	)
	return root
}

func (c *cli) newApp(cmd *cobra.Command) (*app.Application, error) {
	return app.New(app.Options{ConfigFile: c.configFile, TraceOut: cmd.ErrOrStderr()})
}

// execute runs req through the pipeline manager and prints a step summary.
func (c *cli) execute(cmd *cobra.Command, req operations.OperationRequest, continueOnError bool) error {
	a, err := c.newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	req.Years = c.years
	resp, err := a.RunSteps(cmd.Context(), req, continueOnError)
	if resp != nil {
		printResponse(cmd.OutOrStdout(), resp)
	}
	return err
}

func (c *cli) stepCmd(id, short string) *cobra.Command {
	return &cobra.Command{
		Use:   id,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.execute(cmd, operations.OperationRequest{Steps: []string{id}}, false)
		},
	}
}

func (c *cli) apportionCmd() *cobra.Command {
	var sites []int
	cmd := &cobra.Command{
		Use:   operations.StepIDApportion + " --site N...",
		Short: "Write source apportionment inputs for the given sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.execute(cmd, operations.OperationRequest{
				Steps: []string{operations.StepIDApportion},
				Sites: sites,
			}, false)
		},
	}
	cmd.Flags().IntSliceVar(&sites, "site", nil, "site IDs to process")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

func (c *cli) continuousCmd() *cobra.Command {
	var sites []int
	cmd := &cobra.Command{
		Use:   operations.StepIDContinuous,
		Short: "Melt the hourly continuous PM2.5 files into per-site CSVs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.execute(cmd, operations.OperationRequest{
				Steps: []string{operations.StepIDContinuous},
				Sites: sites,
			}, false)
		},
	}
	cmd.Flags().IntSliceVar(&sites, "site", nil, "only write these sites (default: all)")
	return cmd
}

func (c *cli) coverageCmd() *cobra.Command {
	var analyte string
	cmd := &cobra.Command{
		Use:   operations.StepIDCoverage,
		Short: "Write the NT/WS coverage table per site and year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.execute(cmd, operations.OperationRequest{
				Steps:   []string{operations.StepIDCoverage},
				Analyte: analyte,
			}, false)
		},
	}
	cmd.Flags().StringVar(&analyte, "analyte", "", "restrict coverage to one metal")
	return cmd
}

func (c *cli) runCmd() *cobra.Command {
	var (
		steps           []string
		sites           []int
		continueOnError bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run several pipeline steps in dependency order",
		Long: "Run pipeline steps in dependency order. Without --steps the default " +
			"pipeline runs: " + strings.Join(operations.DefaultPipeline, " -> ") + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.execute(cmd, operations.OperationRequest{Steps: steps, Sites: sites}, continueOnError)
		},
	}
	cmd.Flags().StringSliceVar(&steps, "steps", nil, "steps to run (default: "+strings.Join(operations.DefaultPipeline, ",")+")")
	cmd.Flags().IntSliceVar(&sites, "site", nil, "site IDs for apportion and continuous")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep running steps that do not depend on a failed one")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API over the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			if port != 0 {
				a.Config.Server.Port = port
			}
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: server.port)")
	return cmd
}

func printResponse(w io.Writer, resp *operations.OperationResponse) {
	fmt.Fprintf(w, "run %s: %s in %s\n", resp.ID, resp.Status, resp.Duration.Round(time.Millisecond))
	for _, id := range resp.Order {
		step := resp.Steps[id]
		if step == nil {
			continue
		}
		line := fmt.Sprintf("  %-10s %-9s", id, step.Status)
		if step.Message != "" {
			line += " " + step.Message
		}
		for _, key := range []string{"stations", "entries", "undetermined", "files_written", "files_skipped", "rows", "sites", "years", "readings"} {
			if v, ok := step.Metadata[key]; ok {
				line += " " + key + "=" + formatValue(v)
			}
		}
		fmt.Fprintln(w, line)
	}
	if resp.Error != "" {
		fmt.Fprintf(w, "error: %s\n", resp.Error)
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	}
	return fmt.Sprint(v)
}
