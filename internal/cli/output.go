package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/golfcards/internal/api/response"
	"github.com/mcoot/golfcards/internal/model"
	"github.com/mcoot/golfcards/internal/services/recovery"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case *model.GameState:
		o.printState(v)
	case ImportResult:
		o.printImport(v)
	case recovery.Report:
		o.printReport(v)
	case response.Game:
		o.printGame(v)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\nNode: %s\n", v.Status, v.NodeID)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// ImportResult reports a re-appended game
type ImportResult struct {
	SourceGameID model.GameID     `json:"source_game_id"`
	GameID       model.GameID     `json:"game_id"`
	Events       int              `json:"events"`
	State        *model.GameState `json:"state"`
}

// printState shows a rebuilt game with every card visible. Face-down
// cards are marked with a trailing *.
func (o *Output) printState(s *model.GameState) {
	fmt.Fprintf(o.w, "Game: %s\n", s.GameID)
	if s.RoomCode != "" {
		fmt.Fprintf(o.w, "Room: %s\n", s.RoomCode)
	}
	fmt.Fprintf(o.w, "Phase: %s\n", s.Phase)
	fmt.Fprintf(o.w, "Sequence: %d\n", s.SequenceNum)
	if s.TotalRounds > 0 {
		fmt.Fprintf(o.w, "Round: %d/%d\n", s.CurrentRound, s.TotalRounds)
	}
	if s.InPlay() {
		fmt.Fprintf(o.w, "Turn: %s\n", s.CurrentPlayer())
	}
	if s.FinisherID != "" {
		fmt.Fprintf(o.w, "Finisher: %s\n", s.FinisherID)
	}

	fmt.Fprintf(o.w, "Players (%d):\n", len(s.Players))
	order := s.PlayerOrder
	if len(order) != len(s.Players) {
		order = s.PlayerIDs()
	}
	for _, id := range order {
		p := s.Players[id]
		host := ""
		if id == s.HostID {
			host = " [host]"
		}
		fmt.Fprintf(o.w, "  - %s (%s)%s total=%d rounds_won=%d\n", p.Name, p.ID, host, p.TotalScore, p.RoundsWon)
		if s.Phase != model.PhaseWaiting {
			fmt.Fprintf(o.w, "    %s\n", handString(p.Cards))
		}
	}

	if s.WinnerID != "" {
		fmt.Fprintf(o.w, "Winner: %s\n", s.WinnerID)
	}
	if s.Abandoned {
		fmt.Fprintln(o.w, "Abandoned")
	}
}

func handString(h model.Hand) string {
	cards := make([]string, len(h))
	for i, c := range h {
		cards[i] = c.String()
		if !c.FaceUp {
			cards[i] += "*"
		}
	}
	return strings.Join(cards, " ")
}

func (o *Output) printImport(r ImportResult) {
	fmt.Fprintf(o.w, "Imported %d events from %s as %s\n", r.Events, r.SourceGameID, r.GameID)
	o.printState(r.State)
}

func (o *Output) printReport(r recovery.Report) {
	fmt.Fprintf(o.w, "Recovered: %d (%d incremental)\n", len(r.Recovered), r.Incremental)
	fmt.Fprintf(o.w, "Skipped: %d\n", len(r.Skipped))
	fmt.Fprintf(o.w, "Failed: %d\n", len(r.Failed))
	for _, f := range r.Failed {
		fmt.Fprintf(o.w, "  - %s: %v\n", f.GameID, f.Err)
	}
	fmt.Fprintf(o.w, "Duration: %s\n", r.Duration)
}

func (o *Output) printGame(g response.Game) {
	fmt.Fprintf(o.w, "Game: %s\n", g.ID)
	fmt.Fprintf(o.w, "Room: %s\n", g.RoomCode)
	fmt.Fprintf(o.w, "Phase: %s\n", g.Phase)
	fmt.Fprintf(o.w, "Round: %d/%d\n", g.CurrentRound, g.TotalRounds)
	if g.CurrentPlayer != "" {
		fmt.Fprintf(o.w, "Turn: %s\n", g.CurrentPlayer)
	}
	fmt.Fprintf(o.w, "Deck: %d  Discard: %d", g.DeckCount, g.DiscardCount)
	if g.DiscardTop != nil {
		fmt.Fprintf(o.w, " (top %s)", cardText(*g.DiscardTop))
	}
	fmt.Fprintln(o.w)
	for _, p := range g.Players {
		cards := make([]string, len(p.Cards))
		for i, c := range p.Cards {
			cards[i] = cardText(c)
		}
		fmt.Fprintf(o.w, "  - %s (%s) total=%d: %s\n", p.Name, p.ID, p.TotalScore, strings.Join(cards, " "))
	}
	if g.WinnerID != "" {
		fmt.Fprintf(o.w, "Winner: %s\n", g.WinnerID)
	}
	if g.Abandoned {
		fmt.Fprintln(o.w, "Abandoned")
	}
}

func cardText(c response.Card) string {
	if !c.FaceUp {
		return "??"
	}
	return c.Rank + "-" + c.Suit
}
