package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediaflow/internal/api"
	"mediaflow/internal/apiclient"
	"mediaflow/internal/config"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var owner, title string

	cmd := &cobra.Command{
		Use:   "add <path> [path...]",
		Short: "Register media files and queue them for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if title != "" && len(args) > 1 {
				return errors.New("--title can only be used with a single file")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			added := make([]api.Item, 0, len(args))
			for _, arg := range args {
				path, err := resolveLocalPath(arg)
				if err != nil {
					return err
				}
				item, err := client.Ingest(cmd.Context(), api.IngestRequest{Path: path, Owner: owner, Title: title})
				if err != nil {
					return fmt.Errorf("add %s: %w", arg, wrapClientError(err, client))
				}
				added = append(added, *item)
				if !ctx.jsonMode() {
					fmt.Fprintf(cmd.OutOrStdout(), "Queued %s %q (%s)\n", item.ID, item.Title, item.MimeType)
				}
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, api.ItemListResponse{Items: added})
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id for the new items (defaults to ingest.default_owner)")
	cmd.Flags().StringVar(&title, "title", "", "Display title (defaults to embedded tags or the file name)")
	return cmd
}

func resolveLocalPath(arg string) (string, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", arg, err)
	}
	return abs, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			items, err := client.ListItems(cmd.Context(), apiclient.ListOptions{Statuses: statuses, Owner: owner, Limit: limit})
			if err != nil {
				return wrapClientError(err, client)
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, api.ItemListResponse{Items: items})
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No items")
				return nil
			}
			fmt.Fprintln(out, renderItemTable(items))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().StringVar(&owner, "owner", "", "Filter by owner id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of items")
	return cmd
}

func renderItemTable(items []api.Item) string {
	columns := []column{
		{header: "ID", maxWidth: 36},
		{header: "Title", maxWidth: 40},
		{header: "Owner", maxWidth: 16},
		{header: "Status"},
		{header: "Stage"},
		{header: "Progress", right: true},
		{header: "Views", right: true},
		{header: "Created"},
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Title,
			item.OwnerID,
			item.Status,
			item.Stage,
			strconv.Itoa(item.Progress) + "%",
			strconv.FormatInt(item.ViewCount, 10),
			item.CreatedAt,
		})
	}
	return renderTable(columns, rows)
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			item, err := client.GetItem(cmd.Context(), args[0])
			if err != nil {
				return wrapClientError(err, client)
			}
			if ctx.jsonMode() {
				return writeJSON(cmd, item)
			}
			fmt.Fprint(cmd.OutOrStdout(), describeItem(item, client.MediaURL(item.ID)))
			return nil
		},
	}
}

func describeItem(item *api.Item, mediaURL string) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%-12s %s\n", label+":", value)
	}
	line("ID", item.ID)
	line("Title", item.Title)
	line("Owner", item.OwnerID)
	line("File", item.FilePath)
	line("Type", item.MimeType)
	line("Size", fmt.Sprintf("%d bytes", item.SizeBytes))
	line("Status", fmt.Sprintf("%s (%s, %d%%)", item.Status, item.Stage, item.Progress))
	line("Message", item.Message)
	line("Error", item.ProcessingError)
	if item.DurationSeconds > 0 {
		line("Duration", fmt.Sprintf("%.1fs", item.DurationSeconds))
	}
	if item.Width > 0 && item.Height > 0 {
		line("Dimensions", fmt.Sprintf("%dx%d", item.Width, item.Height))
	}
	line("Codec", item.VideoCodec)
	line("Thumbnail", item.ThumbnailPath)
	if res := item.Sensitivity; res != nil {
		line("Content", fmt.Sprintf("%s (%d%% confidence)", res.Classification, res.Confidence))
		line("Flagged", yesNo(len(res.Flags) > 0))
		if len(res.Flags) > 0 {
			line("Flags", strings.Join(res.Flags, ", "))
		}
	}
	line("Views", strconv.FormatInt(item.ViewCount, 10))
	line("Created", item.CreatedAt)
	line("Updated", item.UpdatedAt)
	if item.Status == "completed" {
		line("Stream", mediaURL)
	}
	return b.String()
}

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <id> [id...]",
		Short: "Run completed or failed items through the pipeline again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var failed []string
			for _, id := range args {
				item, err := client.Reprocess(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, wrapClientError(err, client))
					failed = append(failed, id)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s %q\n", item.ID, item.Title)
			}
			if len(failed) > 0 {
				return fmt.Errorf("reprocess failed for %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
