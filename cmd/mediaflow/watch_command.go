package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"mediaflow/internal/progress"
)

type subscription struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId,omitempty"`
	UserID string `json:"userId,omitempty"`
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var items, users []string
	var count int
	var untilDone bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live progress events for items or owners",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(items) == 0 && len(users) == 0 {
				return errors.New("specify at least one --item or --user")
			}
			if untilDone && len(items) == 0 {
				return errors.New("--until-done requires --item")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			conn, err := client.DialProgress(cmd.Context())
			if err != nil {
				return wrapClientError(err, client)
			}
			defer conn.Close()

			for _, id := range items {
				if err := conn.WriteJSON(subscription{Type: "subscribe-item", ItemID: id}); err != nil {
					return fmt.Errorf("subscribe to item %s: %w", id, err)
				}
			}
			for _, id := range users {
				if err := conn.WriteJSON(subscription{Type: "subscribe-user", UserID: id}); err != nil {
					return fmt.Errorf("subscribe to user %s: %w", id, err)
				}
			}

			pending := make(map[string]struct{}, len(items))
			for _, id := range items {
				pending[id] = struct{}{}
			}
			return streamEvents(cmd.Context(), conn, cmd.OutOrStdout(), ctx.jsonMode(), func(evt progress.Event) bool {
				count--
				if count == 0 {
					return true
				}
				if untilDone && (evt.Type == progress.EventComplete || evt.Type == progress.EventError) {
					delete(pending, evt.ID)
					return len(pending) == 0
				}
				return false
			})
		},
	}
	cmd.Flags().StringSliceVar(&items, "item", nil, "Item id to follow (repeatable)")
	cmd.Flags().StringSliceVar(&users, "user", nil, "Owner id whose items to follow (repeatable)")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Exit after this many events")
	cmd.Flags().BoolVar(&untilDone, "until-done", false, "Exit once every --item has completed or failed")
	return cmd
}

// streamEvents prints events until done returns true, ctx ends, or the server
// closes the connection.
func streamEvents(ctx context.Context, conn *websocket.Conn, out io.Writer, asJSON bool, done func(progress.Event) bool) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var evt progress.Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				if closeErr.Code == websocket.CloseNormalClosure {
					return nil
				}
				return fmt.Errorf("progress stream closed: %s", closeErr.Text)
			}
			return fmt.Errorf("read progress event: %w", err)
		}
		if asJSON {
			if err := writeEventJSON(out, evt); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, formatEvent(evt))
		}
		if done(evt) {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

func formatEvent(evt progress.Event) string {
	switch evt.Type {
	case progress.EventComplete:
		if res := evt.SensitivityResult; res != nil {
			return fmt.Sprintf("%s complete: %s (%d%%)", evt.ID, res.Classification, res.Confidence)
		}
		return evt.ID + " complete"
	case progress.EventError:
		return fmt.Sprintf("%s failed: %s", evt.ID, evt.Error)
	default:
		pct := 0
		if evt.Progress != nil {
			pct = *evt.Progress
		}
		parts := []string{fmt.Sprintf("%s %3d%%", evt.ID, pct), string(evt.Stage)}
		if msg := strings.TrimSpace(evt.Message); msg != "" {
			parts = append(parts, msg)
		}
		return strings.Join(parts, "  ")
	}
}
