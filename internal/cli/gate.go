package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/gate-remote/internal/model"
	"github.com/thatsimonsguy/gate-remote/internal/orchestrator"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch and print the current gate state",
		Example: `  gatectl status
  gatectl status --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			refreshErr := stack.Orchestrator.Refresh(cmd.Context())
			snap := stack.Orchestrator.Snapshot()
			view := orchestrator.Describe(snap.State)

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), struct {
					orchestrator.View
					Report *model.GateStatusReport `json:"report,omitempty"`
				}{view, snap.LastReport}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Gate: %s\n", view.Label)
				if snap.LastReport != nil && snap.LastReport.Message != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Message: %s\n", snap.LastReport.Message)
				}
			}
			return refreshErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured endpoint answers with a recognized gate state",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := opts.stack()
			if err != nil {
				return err
			}
			defer stack.Close()

			if !stack.Prober.IsHealthy(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), "unhealthy")
				return errors.New("gate controller is not healthy")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}

func newGateCommandCmd(opts *rootOptions, verb string) *cobra.Command {
	dir := model.DirectionOpening
	if verb == "close" {
		dir = model.DirectionClosing
	}
	var follow bool

	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("Send the %s command to the gate", verb),
		Example: fmt.Sprintf(`  gatectl %[1]s
  gatectl %[1]s --follow`, verb),
		RunE: func(cmd *cobra.Command, args []string) error {
			states := make(chan orchestrator.DisplayState, 64)
			stack, err := opts.stack(orchestrator.WithListener(func(s orchestrator.DisplayState) {
				select {
				case states <- s:
				default:
				}
			}))
			if err != nil {
				return err
			}
			defer stack.Close()

			var ack model.GateOperationAck
			if dir == model.DirectionClosing {
				ack, err = stack.Orchestrator.Close(cmd.Context())
			} else {
				ack, err = stack.Orchestrator.Open(cmd.Context())
			}
			if err != nil {
				return describeFailure(err)
			}

			snap := stack.Orchestrator.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", orchestrator.Describe(snap.State).Label)
			if ack.AlertActive {
				fmt.Fprintln(out, "Warning: the gate reports an active alert")
			}
			if !follow {
				return nil
			}
			return followCountdown(cmd.Context(), out, states)
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", false, "Follow the countdown until the gate state is refreshed")
	return cmd
}

// followCountdown prints countdown updates until the post-countdown refresh
// settles into Idle or Error.
func followCountdown(ctx context.Context, out io.Writer, states <-chan orchestrator.DisplayState) error {
	counting := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-states:
			switch st := s.(type) {
			case orchestrator.CountingDown:
				if counting {
					fmt.Fprintln(out, orchestrator.Describe(st).Label)
				}
				counting = true
			case orchestrator.Idle:
				if counting {
					fmt.Fprintf(out, "Gate: %s\n", orchestrator.Describe(st).Label)
					return nil
				}
			case orchestrator.ErrorState:
				if counting {
					return errors.New(st.Message)
				}
			}
		}
	}
}

func describeFailure(err error) error {
	if errors.Is(err, orchestrator.ErrBusy) {
		return err
	}
	return errors.New(orchestrator.Classify(err).Message)
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
