package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/shell/probe"
)

func newDoctorCmd() *cobra.Command {
	var probeHost string
	var probeTimeout time.Duration

	c := &cobra.Command{
		Use:   "doctor <name>",
		Short: "Probe a stack's services for readiness",
		Long: `doctor refreshes a stack's container states and probes each service the
way its kind dictates: TCP connect for the database and cache, HTTP GET
for the app and the metrics collector, container state for services
without published ports. Exits non-zero when any probe fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			stack, err := rt.store.GetStackByName(ctx, args[0])
			if err != nil {
				return err
			}

			// Probes judge container-kind services by live state, so stale
			// store records would mislead the report.
			services, err := rt.runner.Refresh(ctx, stack)
			if err != nil {
				return fmt.Errorf("inspect containers: %w", err)
			}
			stack.Services = services

			prober := probe.NewProber(probeHost, probeTimeout, rt.logger)
			report := prober.Report(ctx, stack)

			out := newOutput(cmd)
			if out.jsonMode {
				out.JSON(report)
			} else {
				rows := make([][]string, len(report))
				for i, sr := range report {
					ready := "yes"
					if !sr.Ready {
						ready = "no"
					}
					errMsg := sr.Error
					if errMsg == "" {
						errMsg = "-"
					}
					rows[i] = []string{
						sr.Service,
						string(sr.Kind),
						sr.Target,
						ready,
						fmt.Sprintf("%.1fms", sr.LatencyMS),
						errMsg,
					}
				}
				out.Table([]string{"SERVICE", "KIND", "TARGET", "READY", "LATENCY", "ERROR"}, rows)
			}

			failing := 0
			for _, sr := range report {
				if !sr.Ready {
					failing++
				}
			}
			if failing > 0 {
				return fmt.Errorf("%d of %d probes failing", failing, len(report))
			}
			out.Success("all %d probes ready", len(report))
			return nil
		},
	}

	c.Flags().StringVar(&probeHost, "probe-host", "", "Host where published ports are reachable (default 127.0.0.1)")
	c.Flags().DurationVar(&probeTimeout, "probe-timeout", 0, "Per-probe timeout (default 3s)")
	return c
}
