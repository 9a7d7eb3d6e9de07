package cli

import (
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var limit int
	var eventType string

	c := &cobra.Command{
		Use:   "events <name>",
		Short: "Show a stack's container lifecycle events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			stack, err := s.GetStackByName(ctx, args[0])
			if err != nil {
				return err
			}

			var typ *string
			if eventType != "" {
				typ = &eventType
			}
			events, err := s.ListEvents(ctx, stack.ID, limit, typ)
			if err != nil {
				return err
			}

			out := newOutput(cmd)
			if out.jsonMode {
				out.JSON(events)
				return nil
			}

			rows := make([][]string, len(events))
			for i, e := range events {
				msg := e.Message
				if msg == "" {
					msg = "-"
				}
				rows[i] = []string{
					e.Timestamp.Format("2006-01-02 15:04:05"),
					string(e.Type),
					e.Container,
					msg,
				}
			}
			out.Table([]string{"TIME", "TYPE", "CONTAINER", "MESSAGE"}, rows)
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 50, "Maximum number of events to show")
	c.Flags().StringVar(&eventType, "type", "", "Filter by event type (e.g. container_started)")
	return c
}
