package input

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ReadActions turns lines read from r into actions for terminals without a
// global hotkey. An empty line toggles recording, "c" or "cancel" cancels
// it. The channel is closed on "q", at EOF or when ctx is done.
func ReadActions(ctx context.Context, r io.Reader) <-chan Action {
	actions := make(chan Action)

	go func() {
		defer close(actions)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			var action Action
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "":
				action = ActionToggle
			case "c", "cancel":
				action = ActionCancel
			case "q", "quit":
				return
			default:
				continue
			}

			select {
			case actions <- action:
			case <-ctx.Done():
				return
			}
		}
	}()

	return actions
}
