package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sprintloop/sprintloop/internal/board"
	sperrors "github.com/sprintloop/sprintloop/internal/errors"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func statusIcon(s board.Status) string {
	switch s {
	case board.StatusPending:
		return "○ pending"
	case board.StatusRunning:
		return "◐ running"
	case board.StatusAwaitingReview:
		return "◎ review"
	case board.StatusCompleted:
		return "● done"
	case board.StatusFailed:
		return "✗ failed"
	default:
		return string(s)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError renders structured errors with their why/fix sections.
func printError(err error) {
	var se *sperrors.Error
	if errors.As(err, &se) {
		fmt.Fprintln(os.Stderr, se.UserMessage())
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
}

// requireActiveBoard resolves the board to operate on: an explicit id wins,
// otherwise the active board.
func requireActiveBoard(a *app, boardID string) (*board.Board, error) {
	if boardID != "" {
		return a.store.GetBoard(boardID)
	}
	b := a.store.GetActiveBoard()
	if b == nil {
		return nil, fmt.Errorf("no board yet; create one with 'sprintloop board create <name>'")
	}
	return b, nil
}
