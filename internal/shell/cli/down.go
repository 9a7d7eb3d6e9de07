package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/domain"
	"github.com/artpar/stackd/internal/core/plan"
)

func newDownCmd() *cobra.Command {
	var timeout time.Duration

	c := &cobra.Command{
		Use:   "down <name>",
		Short: "Stop a running stack's containers",
		Long: `down stops a stack's containers in reverse dependency order. Containers
and volumes are kept; destroy removes them.`,
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

			if allowed, reason := plan.CanStopStack(stack.Status); !allowed {
				return errors.New(reason)
			}
			if err := stack.Transition(domain.StatusStopping); err != nil {
				return err
			}
			if err := rt.store.UpdateStack(ctx, stack); err != nil {
				return err
			}

			if err := rt.runner.Down(ctx, stack); err != nil {
				_ = stack.TransitionToFailed(err.Error())
				_ = rt.store.UpdateStack(ctx, stack)
				return fmt.Errorf("stop stack %s: %w", stack.Name, err)
			}

			// Capture the final container states while the containers still exist.
			if services, err := rt.runner.Refresh(ctx, stack); err == nil {
				stack.Services = services
			}

			if err := stack.Transition(domain.StatusStopped); err != nil {
				return err
			}
			if err := rt.store.UpdateStack(ctx, stack); err != nil {
				return err
			}

			newOutput(cmd).Success("stack %s stopped", stack.Name)
			return nil
		},
	}

	c.Flags().DurationVar(&timeout, "timeout", 0, "Grace period before containers are killed (default 10s)")
	return c
}
