package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/catalog"
	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/envfile"
)

func newUpCmd() *cobra.Command {
	var envFile string
	var name string
	var pull string

	c := &cobra.Command{
		Use:   "up <variant>",
		Short: "Create and start a stack from a variant",
		Long: `up resolves a variant's variables, records a new stack in the database
and starts its containers in dependency order. Variables come from
declared defaults, overridden by the env file. Variables without
defaults (secrets) must be supplied.`,
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

			stack, err := domain.NewStack(variant, name, vars)
			if err != nil {
				return err
			}

			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.runner.SetPullPolicy(pull)

			ctx := cmd.Context()

			// Keep the store's copy of the variant current so a running
			// server resolves the same catalog this stack was built from.
			v := variant
			if err := rt.store.UpsertVariant(ctx, &v); err != nil {
				return fmt.Errorf("register variant: %w", err)
			}

			if err := rt.store.CreateStack(ctx, stack); err != nil {
				return err
			}
			if err := stack.Transition(domain.StatusStarting); err != nil {
				return err
			}
			if err := rt.store.UpdateStack(ctx, stack); err != nil {
				return err
			}

			services, err := rt.runner.Up(ctx, stack, stack.ComposeYAML, stack.Variables, variant.ConfigFiles)
			if err != nil {
				_ = stack.TransitionToFailed(err.Error())
				_ = rt.store.UpdateStack(ctx, stack)
				return fmt.Errorf("start stack %s: %w", stack.Name, err)
			}

			stack.Services = services
			if err := stack.Transition(domain.StatusRunning); err != nil {
				return err
			}
			if err := rt.store.UpdateStack(ctx, stack); err != nil {
				return err
			}

			out := newOutput(cmd)
			if out.jsonMode {
				out.JSON(stack)
			} else {
				headers, rows := serviceTable(services)
				out.Table(headers, rows)
			}
			out.Success("stack %s is running (%d services)", stack.Name, len(services))
			return nil
		},
	}

	c.Flags().StringVar(&envFile, "env-file", "", "Env file supplying variable values")
	c.Flags().StringVar(&name, "name", "", "Stack name (generated when empty)")
	c.Flags().StringVar(&pull, "pull", "", `Image pull policy: "missing", "always" or "never"`)
	return c
}
