package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-link-shortener/server"
	"go-link-shortener/types"
)

func newShortenCommand(logger *zap.Logger, opts *options) *cobra.Command {
	var (
		validity  float64
		shortcode string
	)

	cmd := &cobra.Command{
		Use:   "shorten URL [URL...]",
		Short: "Shorten up to five URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if shortcode != "" && len(args) > 1 {
				return errors.New("--shortcode can only be used with a single URL")
			}

			reqs := make([]types.ShortenRequest, len(args))
			for i, arg := range args {
				reqs[i] = types.ShortenRequest{LongURL: arg, Shortcode: shortcode}
				if cmd.Flags().Changed("validity") {
					v := validity
					reqs[i].ValidityMinutes = &v
				}
			}

			return opts.withCore(cmd.Context(), logger, func(core *server.Core) error {
				results, err := core.Service.ShortenBatch(cmd.Context(), reqs)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "LONG URL\tSHORT URL\tEXPIRES")
				failed := 0
				for i, result := range results {
					if result.Record == nil {
						failed++
						fmt.Fprintf(w, "%s\terror: %s\t-\n", reqs[i].LongURL, result.Error)
						continue
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", result.Record.LongURL, result.Record.ShortURL, result.Record.Expires.Format(time.RFC3339))
				}
				if err := w.Flush(); err != nil {
					return err
				}

				if failed == len(results) {
					return errors.New("no URL was shortened")
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64VarP(&validity, "validity", "v", 0, "Validity in whole minutes (default from configuration)")
	cmd.Flags().StringVarP(&shortcode, "shortcode", "s", "", "Custom 4-20 character alphanumeric shortcode")
	return cmd
}

func newResolveCommand(logger *zap.Logger, opts *options) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "resolve SHORTCODE",
		Short: "Print the long URL of a shortcode and record a click",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCore(cmd.Context(), logger, func(core *server.Core) error {
				longURL, err := core.Service.Resolve(cmd.Context(), args[0], types.Visit{Source: source})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), longURL)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source recorded with the click")
	return cmd
}

func newListCommand(logger *zap.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every short URL with its click statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withCore(cmd.Context(), logger, func(core *server.Core) error {
				stats, err := core.Service.Stats(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SHORTCODE\tLONG URL\tCLICKS\tCREATED\tEXPIRES\tSTATUS")
				for _, s := range stats {
					status := "active"
					if s.Expired {
						status = "expired"
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
						s.Shortcode, s.LongURL, s.Clicks,
						s.Created.Format(time.RFC3339), s.Expires.Format(time.RFC3339), status)
				}
				return w.Flush()
			})
		},
	}
}
