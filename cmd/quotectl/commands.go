package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotebook/internal/cli"
	"github.com/jsamuelsen/quotebook/internal/tui"
)

func printQuote(w io.Writer, q dto.QuoteResponse) {
	fmt.Fprintf(w, "%q\nCategory: %s\n", q.Text, q.Category)
}

func newNextCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show a random quote from the selected category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.client.Next(cmd.Context())
			if cli.IsNotFound(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No quotes found in this category.")
				return nil
			}
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), q, func(w io.Writer) { printQuote(w, q) })
		},
	}
}

func newLastCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the quote this session saw last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := opts.client.Last(cmd.Context())
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), q, func(w io.Writer) { printQuote(w, q) })
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			quotes, err := opts.client.List(cmd.Context(), category)
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), quotes, func(w io.Writer) {
				for _, q := range quotes {
					fmt.Fprintf(w, "[%s] %s\n", q.Category, q.Text)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "only this category")

	return cmd
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote and submit it to the remote collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client.Add(cmd.Context(), strings.Join(args, " "), category)
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintln(w, "Quote added.")
				fmt.Fprintln(w, resp.Submission.Message)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category of the new quote")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and mark the selected filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := opts.client.Categories(cmd.Context())
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), view, func(w io.Writer) {
				for _, c := range append([]string{"all"}, view.Categories...) {
					marker := " "
					if c == view.Selected {
						marker = "*"
					}
					fmt.Fprintf(w, "%s %s\n", marker, c)
				}
			})
		},
	}
}

func newFilterCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "filter [category]",
		Short: "Show or change the selected category filter",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				category string
				err      error
			)

			if len(args) == 1 {
				category, err = opts.client.SetFilter(cmd.Context(), args[0])
			} else {
				category, err = opts.client.Filter(cmd.Context())
			}
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), dto.FilterResponse{Category: category}, func(w io.Writer) {
				fmt.Fprintln(w, category)
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all quotes as quotes.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := opts.client.Export(cmd.Context())
			if err != nil {
				return err
			}

			if output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "quotes.json", "destination file, or - for stdout")

	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import quotes from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			resp, err := opts.client.Import(cmd.Context(), in)
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%d quotes)\n", resp.Message, resp.Imported)
			})
		},
	}
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge the remote collection now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := opts.client.Sync(cmd.Context())
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), resp, func(w io.Writer) {
				fmt.Fprintf(w, "%s: fetched %d, added %d\n", resp.Outcome, resp.Fetched, len(resp.Added))
				fmt.Fprintln(w, resp.Status)
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := opts.client.SyncStatus(cmd.Context())
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), status, func(w io.Writer) {
				fmt.Fprintln(w, status.Text)
			})
		},
	}
}

func newNotificationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show active notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := opts.client.Notifications(cmd.Context())
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), notes, func(w io.Writer) {
				for _, n := range notes {
					fmt.Fprintf(w, "[%s] %s\n", n.Kind, n.Message)
				}
			})
		},
	}
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive quote viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			model := tui.New(tui.Options{Context: cmd.Context(), API: opts.client})

			_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()

			return err
		},
	}
}
