package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/catalog"
	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/envfile"
	"github.com/artpar/stackd/internal/core/plan"
)

func newPlanCmd() *cobra.Command {
	var envFile string

	c := &cobra.Command{
		Use:   "plan <variant>",
		Short: "Show the start order a variant's services would use",
		Long: `plan parses a variant's compose document and prints the dependency-
ordered start sequence. The wave column groups services with no ordering
between them; everything in wave N has its dependencies in earlier waves.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variant, err := catalog.Get(args[0])
			if err != nil {
				return err
			}

			fileVars := map[string]string{}
			if envFile != "" {
				if fileVars, err = loadEnvFile(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}

			vars := domain.ResolveVariables(variant.Variables, fileVars)
			// The dependency graph does not depend on variable values, so
			// unset secrets get a placeholder rather than blocking the plan.
			for _, name := range envfile.MissingVariables(compose.RequiredVariables(variant.ComposeYAML), vars) {
				vars[name] = "placeholder"
			}

			doc, err := compose.Parse(variant.ComposeYAML, vars)
			if err != nil {
				return fmt.Errorf("parse %s: %w", variant.Name, err)
			}

			order := plan.TopologicalSort(doc.Services)
			waves := plan.Waves(doc.Services)
			graph := compose.DependencyGraph(doc)

			waveOf := make(map[string]int, len(doc.Services))
			for i, wave := range waves {
				for _, svc := range wave {
					waveOf[svc.Name] = i + 1
				}
			}

			out := newOutput(cmd)
			if out.jsonMode {
				orderNames := make([]string, len(order))
				for i, svc := range order {
					orderNames[i] = svc.Name
				}
				waveNames := make([][]string, len(waves))
				for i, wave := range waves {
					waveNames[i] = make([]string, len(wave))
					for j, svc := range wave {
						waveNames[i][j] = svc.Name
					}
				}
				out.JSON(map[string]any{
					"variant":    variant.Name,
					"order":      orderNames,
					"waves":      waveNames,
					"depends_on": graph,
				})
				return nil
			}

			rows := make([][]string, len(order))
			for i, svc := range order {
				deps := strings.Join(graph[svc.Name], ", ")
				if deps == "" {
					deps = "-"
				}
				rows[i] = []string{
					strconv.Itoa(i + 1),
					svc.Name,
					strconv.Itoa(waveOf[svc.Name]),
					deps,
				}
			}
			out.Table([]string{"#", "SERVICE", "WAVE", "DEPENDS ON"}, rows)
			return nil
		},
	}

	c.Flags().StringVar(&envFile, "env-file", "", "Env file supplying variable values")
	return c
}
