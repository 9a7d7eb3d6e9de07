package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/compose"
)

func newValidateCmd() *cobra.Command {
	var envFile string

	c := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a compose document without touching Docker",
		Long: `validate parses a compose document and runs the structural checks:
dependency resolution, duplicate host ports, undeclared volumes and
networks, and unconventional image ports. A document that does not parse
is reported as a single finding. Exits non-zero when findings exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			vars := map[string]string{}
			if envFile != "" {
				if vars, err = loadEnvFile(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}

			var findings []string
			var services []string
			doc, err := compose.Parse(string(content), vars)
			if err != nil {
				findings = append(findings, err.Error())
			} else {
				services = doc.ServiceNames()
				for _, ferr := range compose.Validate(doc) {
					findings = append(findings, ferr.Error())
				}
			}

			out := newOutput(cmd)
			if out.jsonMode {
				out.JSON(map[string]any{
					"file":     args[0],
					"valid":    len(findings) == 0,
					"services": services,
					"findings": findings,
				})
			} else {
				for _, f := range findings {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
			}

			if len(findings) > 0 {
				return fmt.Errorf("%s: %d finding(s)", args[0], len(findings))
			}
			out.Success("%s: OK (%d services)", args[0], len(services))
			return nil
		},
	}

	c.Flags().StringVar(&envFile, "env-file", "", "Env file supplying ${VAR} values")
	return c
}
