package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"oact/internal/assessment"
	"oact/internal/evidence"
	"oact/internal/registry"
	"oact/internal/report"
	"oact/internal/signal"
)

// errInvalidSignal marks a signal that failed validation; the violations have
// already been printed.
var errInvalidSignal = errors.New("signal failed validation")

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatMap      = "map"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "oactctl",
		Short:         "Assess risk signals against an SME registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAssessCmd(), newValidateCmd(), newRegistryCmd())
	return root
}

func newAssessCmd() *cobra.Command {
	var signalPath, registryPath, format, id string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one signal and print the evidence bundle",
		Example: `  oactctl assess --signal signal.json --registry registry.yaml
  cat signal.json | oactctl assess --signal - --registry registry.json --format markdown`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case formatJSON, formatMarkdown, formatMap:
			default:
				return fmt.Errorf("unknown format %q (want json, markdown or map)", format)
			}

			snap, err := registry.LoadFile(registryPath, time.Now())
			if err != nil {
				return err
			}
			data, err := readInput(cmd.InOrStdin(), signalPath)
			if err != nil {
				return err
			}
			raw, err := signal.Decode(data)
			if err != nil {
				return printViolations(cmd.ErrOrStderr(), err)
			}
			if id == "" {
				id = uuid.NewString()
			}
			bundle, err := assessment.Assess(raw, snap,
				assessment.WithID(id),
				assessment.WithCreatedAt(time.Now().UTC()),
			)
			if err != nil {
				return printViolations(cmd.ErrOrStderr(), err)
			}
			return writeBundle(cmd.OutOrStdout(), bundle, snap, format)
		},
	}
	cmd.Flags().StringVar(&signalPath, "signal", "", "signal JSON file, or - for stdin")
	cmd.Flags().StringVar(&registryPath, "registry", "", "SME registry file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&format, "format", formatJSON, "output: json, markdown or map")
	cmd.Flags().StringVar(&id, "id", "", "bundle ID (default: a random UUID)")
	_ = cmd.MarkFlagRequired("signal")
	_ = cmd.MarkFlagRequired("registry")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var signalPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a signal and list every violated constraint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readInput(cmd.InOrStdin(), signalPath)
			if err != nil {
				return err
			}
			if _, err := signal.Parse(data); err != nil {
				return printViolations(cmd.ErrOrStderr(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signal is valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&signalPath, "signal", "", "signal JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("signal")
	return cmd
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Work with SME registry files",
	}

	var registryPath string
	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Validate a registry file and print its version and size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := registry.LoadFile(registryPath, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", snap.Version())
			fmt.Fprintf(out, "entries: %d\n", snap.Len())
			routes := 0
			snap.Each(func(e registry.Entry) { routes += len(e.DeliveryRoutes) })
			fmt.Fprintf(out, "delivery routes: %d\n", routes)
			return nil
		},
	}
	inspect.Flags().StringVar(&registryPath, "registry", "", "SME registry file (.json, .yaml or .yml)")
	_ = inspect.MarkFlagRequired("registry")

	cmd.AddCommand(inspect)
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signal: %w", err)
	}
	return data, nil
}

func printViolations(w io.Writer, err error) error {
	var verr *signal.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for _, v := range verr.Violations {
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.Field, v.Constraint, v.Message)
	}
	return errInvalidSignal
}

func writeBundle(w io.Writer, b *evidence.Bundle, snap *registry.Snapshot, format string) error {
	switch format {
	case formatMarkdown:
		md, err := report.Markdown(b)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case formatMap:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report.MapPayload(b, report.WithRegistry(snap)))
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
}
