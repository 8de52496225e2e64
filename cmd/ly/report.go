package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/analytics"
	"github.com/zulandar/leadyard/internal/digest"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/notify"
)

func newSummariesCmd() *cobra.Command {
	var (
		configPath string
		limit      int
		full       bool
	)

	cmd := &cobra.Command{
		Use:   "summaries",
		Short: "List summaries written for completed conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummaries(cmd, configPath, limit, full)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().IntVar(&limit, "limit", lead.DefaultSummaryLimit, "maximum number of summaries")
	cmd.Flags().BoolVar(&full, "full", false, "print each summary body")
	return cmd
}

func runSummaries(cmd *cobra.Command, configPath string, limit int, full bool) error {
	_, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	emails, err := store.ListSummaries(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(emails) == 0 {
		fmt.Fprintln(out, "No summaries sent yet.")
		return nil
	}

	if full {
		for _, e := range emails {
			fmt.Fprintf(out, "To: %s\nSubject: %s\nSent: %s\n\n%s\n\n", e.Recipient, e.Subject,
				e.SentAt.Format("2006-01-02 15:04:05"), e.Body)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SENT\tLEAD\tRECIPIENT\tSUBJECT")
	for _, e := range emails {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.SentAt.Format("2006-01-02 15:04"), e.LeadName, e.Recipient, truncate(e.Subject, 48))
	}
	w.Flush()
	return nil
}

func newAnalyticsCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show lead pipeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(cmd, configPath, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runAnalytics(cmd *cobra.Command, configPath string, asJSON bool) error {
	_, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := analytics.Load(cmd.Context(), store)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total leads:\t%d\n", report.Total)
	fmt.Fprintf(w, "Hot / Warm / Cold:\t%d / %d / %d\n", report.Hot, report.Warm, report.Cold)
	fmt.Fprintln(w, "\nBudget\t")
	for _, b := range report.Budget {
		fmt.Fprintf(w, "  %s\t%d\n", b.Label, b.Count)
	}
	fmt.Fprintln(w, "\nTimeline (months)\t")
	for _, b := range report.Timeline {
		fmt.Fprintf(w, "  %s\t%d\n", b.Label, b.Count)
	}
	printCounts(w, "Next actions", report.Actions)
	printCounts(w, "Preferences", report.Preferences)
	w.Flush()
	return nil
}

// printCounts writes counts sorted by descending count, then key.
func printCounts(w *tabwriter.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(w, "\n%s\t\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
}

func newDigestCmd() *cobra.Command {
	var (
		configPath string
		window     time.Duration
		send       bool
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the pipeline digest, optionally posting it to agent channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, configPath, window, send)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().DurationVar(&window, "window", 0, "period to report on (default digest.window)")
	cmd.Flags().BoolVar(&send, "send", false, "post the digest to the configured notify channels")
	return cmd
}

func runDigest(cmd *cobra.Command, configPath string, window time.Duration, send bool) error {
	cfg, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	if window <= 0 {
		window = cfg.Digest.Window
	}
	report, err := digest.Load(cmd.Context(), store, time.Now(), window)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report == nil {
		fmt.Fprintf(out, "No lead activity in the last %s.\n", window)
		return nil
	}

	fmt.Fprintln(out, report.Title())
	fmt.Fprintln(out, report.Text())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, f := range report.Fields() {
		fmt.Fprintf(w, "  %s:\t%s\n", f.Name, f.Value)
	}
	w.Flush()

	if !send {
		return nil
	}
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}
	if notifier == nil {
		return fmt.Errorf("no notify channel configured")
	}
	if err := notifier.Notify(cmd.Context(), report); err != nil {
		return err
	}
	fmt.Fprintln(out, "Digest posted.")
	return nil
}
