package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/golfcards/internal/api/response"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Health
			if err := client.Get(cmd.Context(), "/api/v1/health", &result); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game-id>",
		Short: "Print a game's public view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var game response.Game
			if err := client.Get(cmd.Context(), "/api/v1/games/"+url.PathEscape(args[0]), &game); err != nil {
				return err
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(game)
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch <game-id>",
		Short: "Stream a game's live view",
		Long: `Connect to the game's SSE stream and print each change as it happens.

Events:
  - state: the public view after a move
  - game-over: the winner, sent once when the last round is scored

The stream ends after game-over. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamGame(ctx, cmd.OutOrStdout(), args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamGame(ctx context.Context, w io.Writer, gameID string, jsonOutput bool) error {
	streamURL := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/games/" + url.PathEscape(gameID) + "/stream"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if !jsonOutput {
		fmt.Fprintf(w, "Watching game %s\n", gameID)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var event string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if event != "" {
				printEvent(w, event, strings.Join(dataLines, "\n"), jsonOutput)
				if event == "game-over" {
					return nil
				}
			}
			event = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream error: %w", err)
	}
	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

func printEvent(w io.Writer, event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		line, _ := json.Marshal(SSEEvent{Time: now, Event: event, Data: data})
		fmt.Fprintln(w, string(line))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	switch event {
	case "state":
		var game response.Game
		if err := json.Unmarshal([]byte(data), &game); err == nil {
			fmt.Fprintf(w, "[%s] #%d %s round %d/%d", timestamp, game.SequenceNum, game.Phase, game.CurrentRound, game.TotalRounds)
			if game.CurrentPlayer != "" {
				fmt.Fprintf(w, " turn=%s", game.CurrentPlayer)
			}
			if game.DiscardTop != nil {
				fmt.Fprintf(w, " discard=%s", cardText(*game.DiscardTop))
			}
			fmt.Fprintln(w)
			return
		}
	case "game-over":
		fmt.Fprintf(w, "[%s] game over, winner: %s\n", timestamp, data)
		return
	}

	display := strings.ReplaceAll(data, "\n", " ")
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, event, display)
}
