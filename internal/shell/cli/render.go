package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/catalog"
	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/envfile"
	"github.com/artpar/stackd/internal/core/plan"
)

func newRenderCmd() *cobra.Command {
	var envFile string

	c := &cobra.Command{
		Use:   "render <variant>",
		Short: "Print a variant's deploy-ready compose document",
		Long: `render resolves a variant's variables from declared defaults and an
optional env file, substitutes them into the compose document and prints
the result, followed by the variant's config files (the monitoring
variant ships a prometheus.yml). Variables without defaults must come
from the env file.`,
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
			missing := envfile.MissingVariables(compose.RequiredVariables(variant.ComposeYAML), vars)
			if len(missing) > 0 {
				return fmt.Errorf("missing required variables: %s (supply them with --env-file)",
					strings.Join(missing, ", "))
			}

			rendered := plan.SubstituteVariables(variant.ComposeYAML, vars)

			out := newOutput(cmd)
			if out.jsonMode {
				files := make([]map[string]string, 0, len(variant.ConfigFiles))
				for _, cf := range variant.ConfigFiles {
					files = append(files, map[string]string{"path": cf.Path, "content": cf.Content})
				}
				out.JSON(map[string]any{
					"variant":      variant.Name,
					"compose_yaml": rendered,
					"config_files": files,
				})
				return nil
			}

			w := cmd.OutOrStdout()
			fmt.Fprint(w, rendered)
			for _, cf := range variant.ConfigFiles {
				fmt.Fprintf(w, "---\n# %s\n%s", cf.Path, cf.Content)
			}
			return nil
		},
	}

	c.Flags().StringVar(&envFile, "env-file", "", "Env file supplying variable values")
	return c
}
