package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhdewitt/diagweb/internal/builder"
	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/platform"
	"github.com/nhdewitt/diagweb/internal/runner"
)

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List commands available on the platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, family, err := g.resolve()
			if err != nil {
				return err
			}

			cmds := cat.CommandsForPlatform(family)
			if !isTerminal(cmd.OutOrStdout()) {
				out := make([]catalog.Summary, 0, len(cmds))
				for _, c := range cmds {
					out = append(out, c.Summary())
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tNAME\tTARGET\tDESCRIPTION")
			for _, c := range cmds {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Target), c.Description)
			}
			return tw.Flush()
		},
	}
}

func newOptionsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "options <command>",
		Short: "Show the options of a command on the platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, family, err := g.command(args[0])
			if err != nil {
				return err
			}

			opts := catalog.OptionsForPlatform(c, family)
			if !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd.OutOrStdout(), opts)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTYPE\tREQUIRED\tDEFAULT\tLABEL")
			for _, o := range opts {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", o.ID, describeKind(o), o.Required, orDash(o.Default), o.Label)
			}
			return tw.Flush()
		},
	}
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build <command> [option=value ...]",
		Short: "Print the argument vector without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argv, err := g.build(args)
			if err != nil {
				return err
			}
			if !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd.OutOrStdout(), argv)
			}
			for _, a := range argv {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}
}

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command> [option=value ...]",
		Short: "Build and execute a command, printing its captured output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.checkRunnable(); err != nil {
				return err
			}

			cfg, err := g.load()
			if err != nil {
				return err
			}
			argv, err := g.build(args)
			if err != nil {
				return err
			}

			r := runner.New(runner.Config{Timeout: cfg.ExecTimeout(), MaxOutput: cfg.Exec.MaxOutputBytes})
			res, err := r.Run(cmd.Context(), argv)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				return writeJSON(out, res)
			}
			fmt.Fprint(out, res.Stdout)
			fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)
			if res.Error != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), res.Error)
			}
			if res.ExitCode != 0 {
				return fmt.Errorf("%s exited with code %d", argv[0], res.ExitCode)
			}
			return nil
		},
	}
}

func newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show platform information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := platform.Detect()
			if !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "os\t%s\n", info.OS)
			fmt.Fprintf(tw, "platform\t%s\n", info.Platform)
			fmt.Fprintf(tw, "system\t%s\n", info.System)
			fmt.Fprintf(tw, "machine\t%s\n", info.Machine)
			fmt.Fprintf(tw, "version\t%s\n", info.Version)
			fmt.Fprintf(tw, "release\t%s\n", orDash(info.Release))
			fmt.Fprintf(tw, "distro\t%s\n", orDash(info.Distro))
			fmt.Fprintf(tw, "cpus\t%d\n", info.NumCPU)
			return tw.Flush()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog.json>",
		Short: "Check a catalog file for schema errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			win := len(cat.CommandsForPlatform(platform.Windows))
			unix := len(cat.CommandsForPlatform(platform.Unix))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands (%d windows, %d unix)\n", args[0], cat.Len(), win, unix)
			return nil
		},
	}
}

// checkRunnable rejects a --platform override naming another family, since
// the built argv would be executed on this host.
func (g *globalFlags) checkRunnable() error {
	family, err := g.family()
	if err != nil {
		return err
	}
	if family != platform.Current() {
		return fmt.Errorf("--platform %s cannot differ from the current platform (%s) when running", family, platform.Current())
	}
	return nil
}

func (g *globalFlags) resolve() (*catalog.Catalog, platform.Family, error) {
	family, err := g.family()
	if err != nil {
		return nil, "", err
	}
	cat, err := g.catalog()
	if err != nil {
		return nil, "", err
	}
	return cat, family, nil
}

func (g *globalFlags) command(id string) (*catalog.Command, platform.Family, error) {
	cat, family, err := g.resolve()
	if err != nil {
		return nil, "", err
	}
	c, ok := cat.Lookup(id)
	if !ok || !c.Platforms.Allows(family) {
		return nil, "", fmt.Errorf("unknown command %q on %s", id, family)
	}
	return c, family, nil
}

func (g *globalFlags) build(args []string) ([]string, error) {
	c, family, err := g.command(args[0])
	if err != nil {
		return nil, err
	}
	values, err := parseValues(args[1:])
	if err != nil {
		return nil, err
	}
	return builder.Build(c, family, values)
}

// parseValues reads option=value pairs. A bare name sets a checkbox.
func parseValues(pairs []string) (builder.Values, error) {
	values := make(builder.Values, len(pairs))
	for _, p := range pairs {
		key, value, found := strings.Cut(p, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid option %q, want name=value", p)
		}
		if !found {
			value = "true"
		}
		values[key] = value
	}
	return values, nil
}

func describeKind(o catalog.Option) string {
	switch o.Kind {
	case catalog.KindNumber:
		var lo, hi string
		if o.Min != nil {
			lo = fmt.Sprint(*o.Min)
		}
		if o.Max != nil {
			hi = fmt.Sprint(*o.Max)
		}
		if lo == "" && hi == "" {
			return string(o.Kind)
		}
		return fmt.Sprintf("number[%s..%s]", lo, hi)
	case catalog.KindSelect:
		vals := make([]string, len(o.Choices))
		for i, c := range o.Choices {
			vals[i] = c.Value
		}
		return "select(" + strings.Join(vals, "|") + ")"
	}
	return string(o.Kind)
}
