package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/pitchcall/internal/adapters/notify"
	"github.com/dkeye/pitchcall/internal/domain"
)

var (
	callIdentity string
	callDuration time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Run one call from the terminal",
	Long: `Call joins the room for --identity, stays until Ctrl-C or --duration
elapses, ends the call and waits for the analysis report.`,
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callIdentity, "identity", "", "Signed-in user id")
	callCmd.Flags().DurationVar(&callDuration, "duration", 0, "End the call automatically after this long")
	callCmd.Flags().Duration("poll-interval", 0, "Delay between analysis checks")
	callCmd.Flags().Int("poll-max-attempts", 0, "Analysis checks before giving up")
	callCmd.Flags().Bool("video", false, "Publish a camera track")
}

func runCall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	uid, err := domain.NewUserID(callIdentity)
	if err != nil {
		return fmt.Errorf("--identity: %w", err)
	}

	ctl, err := newController(context.Background(), cfg, notify.NewLogSink())
	if err != nil {
		return err
	}
	defer ctl.Close()

	if err := ctl.Start(cmd.Context(), uid); err != nil {
		printOutcome(cmd.OutOrStdout(), ctl.Status())
		return err
	}
	st := ctl.Status()
	fmt.Fprintf(cmd.OutOrStdout(), "connected to %s, press Ctrl-C to end the call\n", st.Room)

	inCall, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if callDuration > 0 {
		var cancel context.CancelFunc
		inCall, cancel = context.WithTimeout(inCall, callDuration)
		defer cancel()
	}

	// Settling while still in the call means the room dropped us.
	if st, err := ctl.Wait(inCall); err == nil {
		printOutcome(cmd.OutOrStdout(), st)
		return errors.New("call ended unexpectedly")
	}
	stop()

	if err := ctl.End(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "call ended, waiting for analysis")

	analyzing, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	st, err = ctl.Wait(analyzing)
	if err != nil {
		ctl.Abort()
		return fmt.Errorf("interrupted while waiting for analysis")
	}
	printOutcome(cmd.OutOrStdout(), st)
	if st.State != domain.CallStateResolved {
		return fmt.Errorf("analysis %s", st.State)
	}
	return nil
}

func printOutcome(w io.Writer, st domain.Status) {
	fmt.Fprintf(w, "state: %s (%s)\n", st.State, st.Reason)
	if st.Result != nil {
		r := st.Result
		fmt.Fprintf(w, "result: %s\n", r.ID)
		if at := r.AnalyzedAt(); !at.IsZero() {
			fmt.Fprintf(w, "analyzed at: %s\n", at.Format(time.RFC3339))
		}
		fmt.Fprintf(w, "interest: %.0f%% %s\n", r.InterestScore()*100, r.InterestLevel())
		fmt.Fprintf(w, "words per turn: you %.1f, agent %.1f\n", r.UserAvgWordsPerTurn, r.AgentAvgWordsPerTurn)
		fmt.Fprintf(w, "summary: %s\n", r.Summary)
		for _, imp := range r.Improvements {
			fmt.Fprintf(w, "  - %s\n", imp)
		}
	}
	if st.Route != nil {
		if st.Route.Message != "" {
			fmt.Fprintln(w, st.Route.Message)
		}
		if st.Route.Target != "" {
			fmt.Fprintf(w, "next: %s\n", st.Route.Target)
		}
	}
}
