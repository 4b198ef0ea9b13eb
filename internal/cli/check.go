package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/reqflow/component"
	"github.com/kbukum/reqflow/observability"
	"github.com/kbukum/reqflow/version"
)

func newCheckCommand(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate settings and report component health",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := g.load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ss, err := openSession(ctx, settings)
			if err != nil {
				return err
			}
			defer ss.close(ctx)

			report := observability.NewServiceHealth(settings.Name, version.Get().Short())
			for _, h := range ss.registry.HealthAll(ctx) {
				report.AddComponent(observability.Health{
					Name:    h.Name,
					Status:  healthStatus(h.Status),
					Message: h.Message,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printCheck(out, ss, report)
			}

			if down := report.Down(); len(down) > 0 {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("unhealthy: %s", strings.Join(down, ", "))}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the health report as JSON")
	return cmd
}

func printCheck(out io.Writer, ss *session, report *observability.ServiceHealth) {
	s := ss.settings
	fmt.Fprintf(out, "%s (%s) %s\n", s.Name, s.Environment, report.Version)
	fmt.Fprintf(out, "  auth: %s\n", s.Auth.summary())
	for _, c := range ss.started.Infrastructure() {
		fmt.Fprintln(out, row(c.Name, c.Type, c.Status, c.Details))
	}
	for _, c := range ss.started.Clients() {
		fmt.Fprintln(out, row(c.Name, c.Type, c.Target))
	}
	for _, h := range report.Components {
		line := row(h.Name, string(h.Status))
		if h.Message != "" {
			line += " (" + h.Message + ")"
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "  status: %s\n", report.Status)
}

func row(cols ...string) string {
	var b strings.Builder
	b.WriteString("  ")
	for _, c := range cols {
		fmt.Fprintf(&b, "%-12s ", c)
	}
	return strings.TrimRight(b.String(), " ")
}

func healthStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusHealthy:
		return observability.HealthStatusUp
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusDown
	}
}
