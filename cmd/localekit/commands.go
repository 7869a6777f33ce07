package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kdsmith18542/localekit/config"
)

func newGetCmd(o *rootOptions) *cobra.Command {
	var (
		path  string
		trace bool
	)
	cmd := &cobra.Command{
		Use:   "get <culture> <name> [args...]",
		Short: "Resolve a single localized string",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			fmtArgs := make([]any, 0, len(args)-2)
			for _, a := range args[2:] {
				fmtArgs = append(fmtArgs, a)
			}
			ls, err := s.engine.Get(s.module, args[0], args[1], path, fmtArgs...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ls.Value)
			if trace {
				fmt.Fprintf(out, "key: %s\nculture: %s\nfound: %t\nsearched: %s\n",
					ls.Key, cultureName(ls.Culture), !ls.ResourceNotFound, ls.SearchedLocation)
			}
			if ls.ResourceNotFound {
				return fmt.Errorf("%q not found for culture %q", args[1], args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Dotted path of the requesting component")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print where the string was searched")
	return cmd
}

func newListCmd(o *rootOptions) *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "list <culture>",
		Short: "List every localized string of a culture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			items, err := s.engine.List(s.module, args[0], parents)
			if err != nil {
				return err
			}
			printStrings(cmd.OutOrStdout(), items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&parents, "parents", false, "Include strings inherited from parent cultures")
	return cmd
}

func newLintCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check resources for parse errors and dangling aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			issues, err := Lint(cmd.OutOrStdout(), s.engine, s.module)
			if err != nil {
				return err
			}
			if issues > 0 {
				return fmt.Errorf("linting found %d issues", issues)
			}
			return nil
		},
	}
}

func newFindMissingCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find-missing",
		Short: "Find keys that some cultures do not translate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			missing, err := FindMissingKeys(s.engine, s.module)
			if err != nil {
				return err
			}
			printMissing(cmd.OutOrStdout(), missing)
			return nil
		},
	}
}

func newWatchCmd(o *rootOptions) *cobra.Command {
	var followConfig bool
	cmd := &cobra.Command{
		Use:   "watch <culture> <name>",
		Short: "Print a string again every time resources change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := o.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if followConfig {
				if err := config.Watch(ctx, o.configPath, s.engine.Settings(), s.log); err != nil {
					return err
				}
			}

			changed := make(chan struct{}, 1)
			unsubscribe := s.engine.OnInvalidated(func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			defer unsubscribe()

			out := cmd.OutOrStdout()
			for {
				ls, err := s.engine.Get(s.module, args[0], args[1], "")
				if err != nil {
					s.log.Error().Err(err).Str("name", args[1]).Msg("lookup")
				} else {
					fmt.Fprintf(out, "%s (%s)\n", ls.Value, cultureName(ls.Culture))
				}

				select {
				case <-ctx.Done():
					return nil
				case <-changed:
				}
			}
		},
	}
	cmd.Flags().BoolVar(&followConfig, "follow-config", false,
		"Apply the settings of the configuration file whenever it changes (flag overrides are not reapplied)")
	return cmd
}
