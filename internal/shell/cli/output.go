package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/stackd/internal/core/domain"
)

// Output formats command results as aligned tables or JSON.
// Data goes to the command's stdout; status messages go to stderr so
// that piped output stays clean.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

func newOutput(cmd *cobra.Command) *Output {
	return &Output{
		jsonMode: jsonOutput,
		w:        cmd.OutOrStdout(),
		errW:     cmd.ErrOrStderr(),
	}
}

// Print writes rows as a table, or jsonData as JSON in --json mode.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table writes an aligned table with a dashed separator under the header.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON writes v with indentation.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Success writes a status message to stderr.
func (o *Output) Success(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}

// serviceTable renders per-service container info rows for up and ps.
func serviceTable(services []domain.ServiceInfo) ([]string, [][]string) {
	headers := []string{"SERVICE", "STATE", "HEALTH", "RESTARTS", "PORTS", "CONTAINER"}
	rows := make([][]string, len(services))
	for i, svc := range services {
		rows[i] = []string{
			svc.Service,
			svc.State,
			string(svc.Health),
			fmt.Sprintf("%d", svc.Restarts),
			formatPorts(svc.Ports),
			shortID(svc.ContainerID),
		}
	}
	return headers, rows
}

func formatPorts(ports []domain.PortMapping) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d->%d/%s", p.HostPort, p.ContainerPort, p.Protocol)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
