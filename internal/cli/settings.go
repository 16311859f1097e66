package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/gate-remote/internal/credentials"
	"github.com/thatsimonsguy/gate-remote/internal/env"
	"github.com/thatsimonsguy/gate-remote/system/startup"
)

func newCredsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Manage the stored gate endpoint and bearer token",
	}

	var url, token string
	set := &cobra.Command{
		Use:     "set",
		Short:   "Store the gate API URL and bearer token",
		Example: `  gatectl creds set --url https://gate.example.net --token s3cret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" || token == "" {
				return errors.New("both --url and --token are required")
			}
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			if err := stack.Credentials.SaveAPIURL(url); err != nil {
				return err
			}
			if err := stack.Credentials.SaveBearerToken(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved")
			return nil
		},
	}
	set.Flags().StringVar(&url, "url", "", "Gate API base URL")
	set.Flags().StringVar(&token, "token", "", "Bearer token")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored credentials with the token masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			apiURL, hasURL, err := stack.Credentials.APIURL()
			if err != nil {
				return err
			}
			bearer, hasToken, err := stack.Credentials.BearerToken()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !hasURL && !hasToken {
				fmt.Fprintln(out, "No credentials stored")
				return nil
			}
			fmt.Fprintf(out, "URL:   %s\n", apiURL)
			fmt.Fprintf(out, "Token: %s\n", credentials.MaskToken(bearer))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credentials and durations",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			if err := stack.Credentials.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared")
			return nil
		},
	}

	cmd.AddCommand(set, show, clearCmd)
	return cmd
}

func newDurationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "durations",
		Short: "Show or change the local opening and closing countdown lengths",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Opening: %ds\nClosing: %ds\n",
				stack.Durations.OpeningSeconds(), stack.Durations.ClosingSeconds())
			return nil
		},
	}

	var opening, closing int
	set := &cobra.Command{
		Use:     "set",
		Short:   "Store the opening and/or closing duration in seconds",
		Example: `  gatectl durations set --opening 18 --closing 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("opening") && !cmd.Flags().Changed("closing") {
				return errors.New("at least one of --opening or --closing is required")
			}
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			if cmd.Flags().Changed("opening") {
				if err := stack.Credentials.SaveOpeningSeconds(opening); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("closing") {
				if err := stack.Credentials.SaveClosingSeconds(closing); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opening: %ds\nClosing: %ds\n",
				stack.Durations.OpeningSeconds(), stack.Durations.ClosingSeconds())
			return nil
		},
	}
	set.Flags().IntVar(&opening, "opening", 0, "Opening duration in seconds")
	set.Flags().IntVar(&closing, "closing", 0, "Closing duration in seconds")

	cmd.AddCommand(set)
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent gate operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			ops, err := stack.History.Recent(limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), ops)
			}
			if len(ops) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No operations recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FINISHED\tKIND\tOUTCOME\tDETAIL")
			for _, op := range ops {
				detail := string(op.GateState)
				if op.Message != "" {
					detail = op.Message
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					op.FinishedAt.Local().Format(time.DateTime), op.Kind, op.Outcome, detail)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of operations to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newInstallServiceCmd() *cobra.Command {
	var servicePath, binaryPath string

	cmd := &cobra.Command{
		Use:   "install-service",
		Short: "Write the systemd unit for the gate-remote daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if servicePath != "" {
				env.Cfg.ServicePath = servicePath
			}
			if binaryPath != "" {
				env.Cfg.BinaryPath = binaryPath
			}
			if err := startup.InstallGateService(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", env.Cfg.ServicePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&servicePath, "service-path", "", "Where to write the unit (overrides service_path)")
	cmd.Flags().StringVar(&binaryPath, "binary", "", "Path of the gate-remote binary (overrides binary_path)")
	return cmd
}
