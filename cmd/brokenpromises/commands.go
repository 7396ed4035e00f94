package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/ports"
	"BrokenPromises/internal/usecase"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var (
		force     bool
		noStorage bool
	)
	cmd := &cobra.Command{
		Use:   "collect <year> [month] [day]",
		Short: "Collect articles published in a year, month or day",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArgs(args)
			if err != nil {
				return err
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			articles, report, err := a.Collect(cmd.Context(), usecase.CollectRequest{
				Scope:        scope,
				ForceCollect: force,
				UseStorage:   !noStorage,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s, %d articles\n", scope, report.Status(), len(articles))
			fmt.Fprintln(out, renderArticles(articles))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore cached collections")
	cmd.Flags().BoolVar(&noStorage, "no-storage", false, "Do not read or write the store")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var scrape bool
	cmd := &cobra.Command{
		Use:   "refresh <year> [month] [day]",
		Short: "Recompute date references of stored articles",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArgs(args)
			if err != nil {
				return err
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.Refresh(cmd.Context(), scope, scrape)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d articles refreshed\n", scope, len(articles))
			fmt.Fprintln(cmd.OutOrStdout(), renderArticles(articles))
			return nil
		},
	}
	cmd.Flags().BoolVar(&scrape, "scrape", false, "Scrape article bodies again before extracting")
	return cmd
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, worker pool and scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}

func newArticlesCommand(ctx *commandContext) *cobra.Command {
	var limit, skip int
	cmd := &cobra.Command{
		Use:   "articles [year] [month] [day]",
		Short: "List stored articles",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ports.ArticleQuery{Limit: limit, Skip: skip}
			if len(args) > 0 {
				scope, err := scopeArgs(args)
				if err != nil {
					return err
				}
				query.Scope = &scope
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			articles, err := a.Store().GetArticles(cmd.Context(), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderArticles(articles))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of articles")
	cmd.Flags().IntVar(&skip, "skip", 0, "Number of articles to skip")
	return cmd
}

func newReportsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reports [year] [month] [day]",
		Short: "List collection reports, newest first",
		Args:  cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter ports.ReportFilter
			if len(args) > 0 {
				scope, err := scopeArgs(args)
				if err != nil {
					return err
				}
				filter.Scope = &scope
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.Store().GetReports(cmd.Context(), filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReports(reports))
			return nil
		},
	}
}

func newCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count <year> [month] [day]",
		Short: "Count stored articles collected for a date",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArgs(args)
			if err != nil {
				return err
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Store().CountArticles(cmd.Context(), &scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d articles\n", scope, n)
			return nil
		},
	}
}

func newLastScrapeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "last-scrape <year> [month] [day]",
		Short: "Show the latest completed collection for a date",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := scopeArgs(args)
			if err != nil {
				return err
			}
			a, err := ctx.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.Store().GetReports(cmd.Context(), ports.ReportFilter{
				Name:   domain.ReportName,
				Scope:  &scope,
				Status: domain.StatusDone,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintf(out, "%s: never collected\n", scope)
				return nil
			}
			last := reports[0]
			fmt.Fprintf(out, "%s: collected %s, %d articles\n", scope, last.CreatedAt.Local().Format(time.DateTime), last.Count())
			return nil
		},
	}
}

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := ctx.config()
			rows := make([][]string, 0, len(cfg.Channels))
			for _, ch := range cfg.Channels {
				opts := make([]string, 0, len(ch.Options))
				for k, v := range ch.Options {
					if strings.EqualFold(k, "apiKey") {
						v = "***"
					}
					opts = append(opts, k+"="+v)
				}
				rows = append(rows, []string{ch.Name, ch.Type, strings.Join(sortedStrings(opts), " ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Type", "Options"}, rows, nil))
			return nil
		},
	}
}

func renderArticles(articles []domain.Article) string {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		published := ""
		if a.HasPublicationDate() {
			published = a.PublishedAt.Format(time.DateOnly)
		}
		refs := make([]string, 0, len(a.RefDates))
		for _, ref := range a.RefDates {
			refs = append(refs, ref.Date.String())
		}
		rows = append(rows, []string{published, a.Channel, truncate(a.Title, 60), strings.Join(refs, ", "), a.URL})
	}
	return renderTable([]string{"Published", "Channel", "Title", "References", "URL"}, rows, nil)
}

func renderReports(reports []domain.RunReport) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		detail := ""
		switch o := r.Outcome.(type) {
		case domain.EscapedOutcome:
			detail = "cached by " + o.RelatedReportID
		case domain.DoneOutcome:
			if len(o.FailedChannels) > 0 {
				detail = "failed: " + strings.Join(o.FailedChannels, ",")
			}
			if o.ForcedCollect {
				detail = strings.TrimSpace("forced " + detail)
			}
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format(time.DateTime),
			r.Scope.String(),
			string(r.Status()),
			strconv.Itoa(r.Count()),
			strings.Join(r.Channels, ","),
			detail,
			r.ID,
		})
	}
	return renderTable([]string{"Created", "Scope", "Status", "Count", "Channels", "Detail", "ID"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
