package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/compose"
	"github.com/artpar/stackd/internal/core/plan"
	"github.com/artpar/stackd/internal/shell/store"
)

func newPsCmd() *cobra.Command {
	var checkOrder bool

	c := &cobra.Command{
		Use:   "ps [name]",
		Short: "List stacks, or show one stack's live containers",
		Long: `Without arguments, ps lists every recorded stack. With a name it
inspects that stack's containers through Docker and shows their live
state. --check-order additionally compares observed container start
timestamps against the compose dependency graph; it needs a stack whose
containers still exist.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if checkOrder {
					return fmt.Errorf("--check-order requires a stack name")
				}
				return listStacks(cmd)
			}
			return showStack(cmd, args[0], checkOrder)
		},
	}

	c.Flags().BoolVar(&checkOrder, "check-order", false, "Verify container start order against the dependency graph")
	return c
}

func listStacks(cmd *cobra.Command) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	stacks, err := s.ListStacks(cmd.Context(), store.ListOptions{Limit: 1000})
	if err != nil {
		return err
	}

	out := newOutput(cmd)
	if out.jsonMode {
		out.JSON(stacks)
		return nil
	}

	rows := make([][]string, len(stacks))
	for i, st := range stacks {
		rows[i] = []string{
			st.Name,
			st.Variant,
			string(st.Status),
			string(st.Health),
			fmt.Sprintf("%d", len(st.Services)),
			st.CreatedAt.Format("2006-01-02 15:04"),
		}
	}
	out.Table([]string{"NAME", "VARIANT", "STATUS", "HEALTH", "SERVICES", "CREATED"}, rows)
	return nil
}

func showStack(cmd *cobra.Command, name string, checkOrder bool) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	stack, err := rt.store.GetStackByName(ctx, name)
	if err != nil {
		return err
	}

	services, err := rt.runner.Refresh(ctx, stack)
	if err != nil {
		return fmt.Errorf("inspect containers: %w", err)
	}
	stack.Services = services

	out := newOutput(cmd)
	if out.jsonMode {
		out.JSON(stack)
	} else {
		headers, rows := serviceTable(services)
		out.Table(headers, rows)
	}

	if !checkOrder {
		return nil
	}

	doc, err := compose.Parse(stack.ComposeYAML, stack.Variables)
	if err != nil {
		return fmt.Errorf("parse stack document: %w", err)
	}
	startedAt := make(map[string]time.Time, len(services))
	for _, svc := range services {
		if svc.StartedAt != nil {
			startedAt[svc.Service] = *svc.StartedAt
		}
	}

	if errs := plan.VerifyStartOrder(doc.Services, startedAt); len(errs) > 0 {
		for _, verr := range errs {
			fmt.Fprintln(cmd.OutOrStdout(), verr)
		}
		return fmt.Errorf("start order check: %d violation(s)", len(errs))
	}
	out.Success("start order consistent with the dependency graph")
	return nil
}
