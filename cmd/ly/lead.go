package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
)

func newLeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lead",
		Short: "Lead management commands",
	}

	cmd.AddCommand(newLeadRegisterCmd())
	cmd.AddCommand(newLeadShowCmd())
	cmd.AddCommand(newLeadListCmd())
	return cmd
}

func newLeadRegisterCmd() *cobra.Command {
	var (
		configPath string
		opts       lead.RegisterOpts
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new buyer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadRegister(cmd, configPath, opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().StringVar(&opts.Name, "name", "", "buyer name (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "buyer email (required)")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "buyer phone")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("email")
	return cmd
}

func runLeadRegister(cmd *cobra.Command, configPath string, opts lead.RegisterOpts) error {
	_, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	l, err := store.Register(cmd.Context(), opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered lead %s (%s)\n", l.ID, l.Email)
	return nil
}

func newLeadShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id-or-email>",
		Short: "Show a lead with its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	return cmd
}

func runLeadShow(cmd *cobra.Command, configPath, key string) error {
	_, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	var l *models.Lead
	if strings.Contains(key, "@") {
		l, err = store.FindByEmail(cmd.Context(), key)
	} else {
		l, err = store.Get(cmd.Context(), key)
	}
	if err != nil {
		return err
	}
	printLead(cmd.OutOrStdout(), l)
	return nil
}

func printLead(out io.Writer, l *models.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", l.ID)
	fmt.Fprintf(w, "Name:\t%s\n", l.Name)
	fmt.Fprintf(w, "Email:\t%s\n", l.Email)
	if l.Phone != "" {
		fmt.Fprintf(w, "Phone:\t%s\n", l.Phone)
	}
	fmt.Fprintf(w, "Status:\t%s\n", l.Status)
	fmt.Fprintf(w, "Score:\t%d\n", l.LeadScore)
	fmt.Fprintf(w, "Budget:\t%s\n", orDash(formatNumber(l.Budget)))
	fmt.Fprintf(w, "Location:\t%s\n", orDash(deref(l.Location)))
	fmt.Fprintf(w, "Property Type:\t%s\n", orDash(deref(l.PropertyType)))
	fmt.Fprintf(w, "Timeline (months):\t%s\n", orDash(formatNumber(l.TimelineMonths)))
	if l.RecommendedAction != nil {
		fmt.Fprintf(w, "Next Action:\t%s\n", *l.RecommendedAction)
	}
	fmt.Fprintf(w, "Completed:\t%t\n", l.ChatCompleted)
	if l.CompletedAt != nil {
		fmt.Fprintf(w, "Completed At:\t%s\n", l.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Created:\t%s\n", l.CreatedAt.Format("2006-01-02 15:04:05"))
	w.Flush()

	if len(l.Conversation) == 0 {
		return
	}
	fmt.Fprintf(out, "\nConversation (%d):\n", len(l.Conversation))
	for _, m := range l.Conversation {
		fmt.Fprintf(out, "  [%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.Role, m.Text)
	}
}

func newLeadListCmd() *cobra.Command {
	var (
		configPath string
		sort       string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeadList(cmd, configPath, lead.ListOpts{Sort: sort, Limit: limit})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().StringVar(&sort, "sort", lead.SortNewest, "sort order (newest, oldest)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of leads (0 = all)")
	return cmd
}

func runLeadList(cmd *cobra.Command, configPath string, opts lead.ListOpts) error {
	if opts.Sort != lead.SortNewest && opts.Sort != lead.SortOldest {
		return fmt.Errorf("--sort must be %s or %s", lead.SortNewest, lead.SortOldest)
	}
	_, store, closeDB, err := openStore(configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	leads, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(leads) == 0 {
		fmt.Fprintln(out, "No leads found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTATUS\tBUDGET\tCOMPLETED")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			l.ID, l.Name, l.Email, l.Status, orDash(formatNumber(l.Budget)), l.ChatCompleted)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d lead(s)\n", len(leads))
	return nil
}
