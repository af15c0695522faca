package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/factory"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/engine"
)

// withApp opens the storage-backed app for the duration of fn
func withApp(fn func(app *factory.App) error) (err error) {
	app, err := openApp()
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		err = errors.Join(err, app.Close())
	}()
	return fn(app)
}

func newReplayCmd() *cobra.Command {
	var upTo int64

	cmd := &cobra.Command{
		Use:   "replay <game-id>",
		Short: "Rebuild a game from its event log and print it",
		Long: `Fold a game's events from the first one and print the resulting state.
Every card is shown; face-down cards carry a trailing *.

Use --to to stop at an earlier sequence number.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID := model.GameID(args[0])
			return withApp(func(app *factory.App) error {
				events, err := app.EventLog.GetEvents(cmd.Context(), gameID, 0, upTo)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					return fmt.Errorf("%w: %s", model.ErrGameNotFound, gameID)
				}
				state, err := engine.Replay(gameID, events)
				if err != nil {
					return err
				}
				NewOutput(cfg.Output, cmd.OutOrStdout()).Print(state)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&upTo, "to", -1, "Last sequence number to apply (default: all)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export <game-id>",
		Short: "Write a game's events in wire form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID := model.GameID(args[0])
			return withApp(func(app *factory.App) error {
				events, err := app.GameController.GetEvents(cmd.Context(), gameID, 0, -1)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if file != "" {
					f, err := os.Create(file)
					if err != nil {
						return err
					}
					defer func() { _ = f.Close() }()
					w = f
				}

				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(response.Events{GameID: string(gameID), Events: events})
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Append exported events under a fresh game id",
		Long: `Read an export, check that it replays cleanly, and append it to the log
under a new game id. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := readExport(cmd, args[0])
			if err != nil {
				return err
			}
			if len(export.Events) == 0 {
				return errors.New("export contains no events")
			}
			source := export.Events[0].GameID

			// Reject exports that do not replay before touching the log
			if _, err := engine.Replay(source, export.Events); err != nil {
				return fmt.Errorf("export does not replay: %w", err)
			}

			return withApp(func(app *factory.App) error {
				gameID := model.GameID(app.IDs.NewID())
				events := model.RebaseEvents(export.Events, gameID)
				if _, err := app.EventLog.AppendBatch(cmd.Context(), events); err != nil {
					return err
				}
				state, err := engine.Replay(gameID, events)
				if err != nil {
					return err
				}
				NewOutput(cfg.Output, cmd.OutOrStdout()).Print(ImportResult{
					SourceGameID: source,
					GameID:       gameID,
					Events:       len(events),
					State:        state,
				})
				return nil
			})
		},
	}
}

func readExport(cmd *cobra.Command, path string) (response.Events, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return response.Events{}, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var export response.Events
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return response.Events{}, fmt.Errorf("read export: %w", err)
	}
	return export, nil
}

// reportJSON is recovery.Report with failures rendered as text
type reportJSON struct {
	Recovered   []model.GameID    `json:"recovered"`
	Incremental int               `json:"incremental"`
	Skipped     []model.GameID    `json:"skipped"`
	Failed      map[string]string `json:"failed"`
	Duration    string            `json:"duration"`
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Rebuild cached state for every active game",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *factory.App) error {
				report, err := app.Recovery.Run(cmd.Context())
				if err != nil {
					return err
				}

				out := NewOutput(cfg.Output, cmd.OutOrStdout())
				if cfg.Output != "json" {
					out.Print(report)
				} else {
					failed := make(map[string]string, len(report.Failed))
					for _, f := range report.Failed {
						failed[string(f.GameID)] = f.Err.Error()
					}
					out.Print(reportJSON{
						Recovered:   report.Recovered,
						Incremental: report.Incremental,
						Skipped:     report.Skipped,
						Failed:      failed,
						Duration:    report.Duration.Round(time.Millisecond).String(),
					})
				}

				if len(report.Failed) > 0 {
					return fmt.Errorf("%d games failed to recover", len(report.Failed))
				}
				return nil
			})
		},
	}
}
