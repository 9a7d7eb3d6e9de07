package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/plan"
)

func newDestroyCmd() *cobra.Command {
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "destroy <name>",
		Short: "Remove a stack's containers, volumes and record",
		Long: `destroy removes a stack's containers, named volumes, network, rendered
config files and database record. Running stacks must be stopped first.
Container removal failures are reported but do not keep the record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime()
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.runner.SetStopTimeout(timeout)

			ctx := cmd.Context()
			stack, err := rt.store.GetStackByName(ctx, args[0])
			if err != nil {
				return err
			}

			if allowed, reason := plan.CanDestroyStack(stack.Status); !allowed {
				return errors.New(reason)
			}
			if err := stack.Transition(domain.StatusRemoving); err != nil {
				return err
			}
			if err := rt.store.UpdateStack(ctx, stack); err != nil {
				rt.logger.Warn("failed to persist removing status", "stack_id", stack.ID, "error", err)
			}

			// Container cleanup failures leave orphans for the operator;
			// the record still goes so the name frees up.
			if err := rt.runner.Destroy(ctx, stack); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: cleanup incomplete: %v\n", err)
			}

			if err := rt.store.DeleteStack(ctx, stack.ID); err != nil {
				return err
			}

			newOutput(cmd).Success("stack %s destroyed", stack.Name)
			return nil
		},
	}

	c.Flags().DurationVar(&timeout, "timeout", 0, "Grace period before containers are killed (default 10s)")
	return c
}
