// Command plannerctl is a terminal driver for the planner core: run a
// single turn against the configured collaborators, or inspect a stored
// session's run-log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/beefkknd/deterministic-planner/internal/config"
	"github.com/beefkknd/deterministic-planner/internal/memory"
	"github.com/beefkknd/deterministic-planner/internal/state"
	"github.com/beefkknd/deterministic-planner/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "plannerctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var sessionID string
	var maxRounds int

	rootCmd := &cobra.Command{
		Use:   "plannerctl",
		Short: "Run and inspect turns of the deterministic task planner",
	}

	runCmd := &cobra.Command{
		Use:   "run [question]",
		Short: "Run one turn of the planner against a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTurn(cmd.Context(), sessionID, maxRounds, args[0])
		},
	}
	runCmd.Flags().StringVar(&sessionID, "session", "cli-session", "session id to run the turn under")
	runCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "planner round budget (0 uses the config default)")

	sessionCmd := &cobra.Command{
		Use:   "session [session-id]",
		Short: "Print the stored conversational history for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showSession(cmd.Context(), args[0])
		},
	}

	rootCmd.AddCommand(runCmd, sessionCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func runTurn(ctx context.Context, sessionID string, maxRounds int, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if maxRounds <= 0 {
		maxRounds = cfg.MaxRounds
	}

	app, err := wiring.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	if _, err := app.Sessions.CreateSession(ctx, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	history, err := app.Memory.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	turnID := len(history) + 1
	result, err := app.Driver.RunTurn(ctx, sessionID, turnID, question, history, maxRounds)
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}

	if err := app.Memory.Append(ctx, sessionID, state.TurnSummary{
		TurnID:       turnID,
		HumanMessage: question,
		AIResponse:   result.FinalResponse,
		KeyArtifacts: result.NewArtifacts,
	}); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	fmt.Printf("status: %s\n\n%s\n", result.Status, result.FinalResponse)
	return nil
}

func showSession(ctx context.Context, sessionID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := wiring.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	history, err := app.Memory.History(ctx, sessionID)
	if err == memory.ErrSessionNotFound {
		fmt.Println("no history recorded for this session")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	for _, turn := range history {
		fmt.Printf("--- turn %d ---\n> %s\n%s\n", turn.TurnID, turn.HumanMessage, turn.AIResponse)
		for _, a := range turn.KeyArtifacts {
			fmt.Printf("  artifact: %s sub_goal=%d %v\n", a.Type, a.SubGoalID, a.Slots)
		}

		page, err := app.RunLog.List(ctx, strconv.Itoa(turn.TurnID), "", 100)
		if err == nil && len(page.Events) > 0 {
			fmt.Println("  run log:")
			for _, e := range page.Events {
				fmt.Printf("    %s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Type, string(e.Payload))
			}
		}
	}
	return nil
}
