package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/snipdex/internal/domain/item"
	snippetuc "github.com/kailas-cloud/snipdex/internal/usecase/snippet"
)

func newAddCommand(st *cliState) *cobra.Command {
	var domainFlag, sourceURL, title string

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Save a snippet and compute its embedding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := item.ParseDomain(domainFlag)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				it, err := a.snippets.Create(ctx, snippetuc.CreateInput{
					Text:      strings.Join(args, " "),
					Domain:    d,
					SourceURL: sourceURL,
					Title:     title,
				})
				if err != nil && it.ID() == "" {
					return err //nolint:wrapcheck // service error is already wrapped
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: saved without embedding: %v\n", err)
				}
				if st.jsonOut {
					return printJSON(cmd.OutOrStdout(), viewOf(&it))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s in %s\n", it.ID(), it.Domain())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&domainFlag, "domain", "d", string(item.Local), "target domain (local, sync)")
	cmd.Flags().StringVar(&sourceURL, "url", "", "page the snippet was captured from")
	cmd.Flags().StringVar(&title, "title", "", "title of the source page")
	return cmd
}

func newListCommand(st *cliState) *cobra.Command {
	var domainFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets in stored order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d item.Domain
			if domainFlag != "" {
				parsed, err := item.ParseDomain(domainFlag)
				if err != nil {
					return err //nolint:wrapcheck // already descriptive
				}
				d = parsed
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				items, err := a.snippets.List(ctx, d)
				if err != nil {
					return err //nolint:wrapcheck // service error is already wrapped
				}
				if st.jsonOut {
					return printJSON(cmd.OutOrStdout(), viewsOf(items))
				}
				return printTable(cmd.OutOrStdout(), viewsOf(items), false)
			})
		},
	}
	cmd.Flags().StringVarP(&domainFlag, "domain", "d", "", "only list one domain")
	return cmd
}

func newMoveCommand(st *cliState) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a snippet to another domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := item.ParseDomain(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			dst, err := item.ParseDomain(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				moved, err := a.snippets.Move(ctx, args[0], src, dst)
				if err != nil {
					return err //nolint:wrapcheck // service error is already wrapped
				}
				if st.jsonOut {
					return printJSON(cmd.OutOrStdout(), viewOf(&moved))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", moved.ID(), moved.Domain())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", string(item.Local), "source domain")
	cmd.Flags().StringVar(&to, "to", string(item.Sync), "target domain")
	return cmd
}

func newRemoveCommand(st *cliState) *cobra.Command {
	var domainFlag string

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a snippet and its cached embedding",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := item.ParseDomain(domainFlag)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.snippets.Delete(ctx, d, args[0]); err != nil {
					return err //nolint:wrapcheck // service error is already wrapped
				}
				if !st.jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from %s\n", args[0], d)
					return nil
				}
				return printJSON(cmd.OutOrStdout(), map[string]string{"id": args[0], "domain": string(d)})
			})
		},
	}
	cmd.Flags().StringVarP(&domainFlag, "domain", "d", string(item.Local), "domain holding the snippet")
	return cmd
}

func newClearCommand(st *cliState) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear <domain>",
		Short: "Delete every snippet of a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := item.ParseDomain(args[0])
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.snippets.Clear(ctx, d)
				if err != nil {
					return err //nolint:wrapcheck // service error is already wrapped
				}
				if st.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]any{"domain": string(d), "removed": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d snippets from %s\n", n, d)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
