package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marti95432/discordbot/internal/config"
	"github.com/marti95432/discordbot/internal/logbuf"
	"github.com/marti95432/discordbot/pkg/protocol"
)

func newRootCmd() *cobra.Command {
	c := &client{}
	root := &cobra.Command{
		Use:           "ticketctl",
		Short:         "ticketctl inspects a running ticketbotd",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "api-url", envOr("TICKETBOT_API_URL", "http://localhost:8080"), "Daemon URL")
	root.PersistentFlags().StringVar(&c.key, "api-key", envOr("TICKETBOT_API_KEY", ""), "API key for authentication")

	root.AddCommand(
		healthCmd(c),
		ticketsCmd(c),
		sessionsCmd(c),
		logsCmd(c),
		configCmd(),
	)
	return root
}

func healthCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var body map[string]string
			if err := c.getJSON(cmd.Context(), "/api/health", &body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\ngateway: %s\n", body["status"], body["gateway"])
			return nil
		},
	}
}

func ticketsCmd(c *client) *cobra.Command {
	tickets := &cobra.Command{
		Use:   "tickets",
		Short: "Inspect the ticket ledger",
	}

	var status, opener string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List tickets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if status != "" {
				q.Set("status", status)
			}
			if opener != "" {
				q.Set("opener", opener)
			}
			var out []protocol.Ticket
			if err := c.getJSON(cmd.Context(), "/api/tickets?"+q.Encode(), &out); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, t := range out {
				fmt.Fprintf(w, "%-20s %-6s %-6s %-20s %s\n", t.ChannelID, t.Status, t.Path, t.Name, t.OpenedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "Filter by status (open|closed)")
	list.Flags().StringVar(&opener, "opener", "", "Filter by opener user id")
	list.Flags().IntVar(&limit, "limit", 50, "Max results")

	show := &cobra.Command{
		Use:   "show <channel-id>",
		Short: "Show one ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.get(cmd.Context(), "/api/tickets/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(body))
			return nil
		},
	}

	tickets.AddCommand(list, show)
	return tickets
}

func sessionsCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "Show the number of live ticket-opening flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var body map[string]int
			if err := c.getJSON(cmd.Context(), "/api/sessions", &body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active sessions: %d\n", body["active"])
			return nil
		},
	}
}

func logsCmd(c *client) *cobra.Command {
	var level, component, request string
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if level != "" {
				q.Set("level", level)
			}
			if component != "" {
				q.Set("component", component)
			}
			if request != "" {
				q.Set("request", request)
			}
			var entries []logbuf.Entry
			if err := c.getJSON(cmd.Context(), "/api/logs?"+q.Encode(), &entries); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(w, "%s %-5s %-10s %s", e.Time.Format("15:04:05.000"), e.Level, e.Component, e.Message)
				if len(e.Attrs) > 0 {
					attrs, _ := json.Marshal(e.Attrs)
					fmt.Fprintf(w, " %s", attrs)
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&component, "component", "", "Only entries from this component")
	cmd.Flags().StringVar(&request, "request", "", "Only entries from one interaction")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max entries")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Work with configuration files",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a config file and print it with secrets masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(args[0])
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(loaded.Redacted())
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "config is valid")
			fmt.Fprint(w, string(out))
			return nil
		},
	})
	return cfg
}
