package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/spektr-org/fertdash/loader"
)

func newInspectCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show how the data file is decoded and which columns are used",
		Long: `Decode the data file and print the detected encoding, how each raw
header maps to a canonical column, columns that are ignored, and a profile
of every column. Exits non-zero when the file cannot be loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			l, err := a.newLoader()
			if err != nil {
				return err
			}
			ins, err := l.Inspect(ctx, a.cfg.Data.Path)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch format {
			case "json", "pretty":
				if err := writeJSON(w, ins, format); err != nil {
					return err
				}
			case "text":
				if err := writeInspection(w, ins); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (valid: text, json, pretty)", format)
			}
			return ins.Err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, pretty")
	return cmd
}

func writeInspection(w io.Writer, ins *loader.Inspection) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(ins.Source) + "\n")
	fmt.Fprintf(&b, "Encoding: %s", ins.Encoding)
	if len(ins.Attempts) > 1 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(ins.Attempts, ", "))
	}
	b.WriteString("\n")

	if r := ins.Report; r != nil {
		fmt.Fprintf(&b, "Rows: %d\n\n", r.Rows)
		b.WriteString(headingStyle.Render("Columns") + "\n")

		width := 0
		for _, c := range r.Columns {
			width = max(width, lipgloss.Width(c.Header))
		}
		header := lipgloss.NewStyle().Width(width + 2)
		for _, c := range r.Columns {
			target := mutedStyle.Render("(ignored)")
			if c.Key != "" {
				target = fmt.Sprintf("%s [%s]", c.Key, c.MatchedBy)
			}
			fmt.Fprintf(&b, "%s→ %-32s %-7s unique=%d blank=%d", header.Render(c.Header), target, c.Type, c.Unique, c.Blank)
			if c.Invalid > 0 {
				b.WriteString(warnStyle.Render(fmt.Sprintf(" invalid=%d", c.Invalid)))
			}
			if len(c.Samples) > 0 {
				b.WriteString(mutedStyle.Render("  e.g. " + strings.Join(c.Samples, " | ")))
			}
			b.WriteString("\n")
		}

		if len(r.Unmapped) > 0 {
			fmt.Fprintf(&b, "\nIgnored columns: %s\n", strings.Join(r.Unmapped, ", "))
		}
		if len(r.Missing) > 0 {
			b.WriteString(warnStyle.Render("\nMissing required columns: "+strings.Join(r.Missing, ", ")) + "\n")
		}
	}

	if ins.Err != nil {
		b.WriteString(warnStyle.Render("\nNot loadable: "+ins.Err.Error()) + "\n")
	} else {
		b.WriteString("\nReady to load.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
