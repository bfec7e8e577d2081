package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"nhooyr.io/websocket"

	"junotreasury/gateway/stream"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Follow committed treasury events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			wsURL := "ws" + strings.TrimPrefix(c.base, "http") + "/v1/events"
			header := http.Header{}
			if c.token != "" {
				header.Set("Authorization", "Bearer "+c.token)
			}
			ctx := cmd.Context()
			conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
			if err != nil {
				return fmt.Errorf("dial %s: %w", wsURL, err)
			}
			defer conn.Close(websocket.StatusNormalClosure, "")
			for {
				_, data, err := conn.Read(ctx)
				if err != nil {
					if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
						return nil
					}
					return err
				}
				var update stream.Update
				if err := json.Unmarshal(data, &update); err != nil {
					return fmt.Errorf("decode event: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s\n", update.Sequence, update.Type, formatAttributes(update.Attributes))
			}
		},
	}
}

func formatAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+attrs[key])
	}
	return strings.Join(parts, " ")
}
