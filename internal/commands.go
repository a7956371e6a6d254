package internal

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/starford/shunya/internal/archive"
	"github.com/starford/shunya/internal/mcpserver"
)

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("MCP server starting", slog.Int("entries", c.entries.Len()))
	if err := mcpserver.New(c.svc, Version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// List writes one line per entry, newest first.
func List(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	c, err := app.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	items, total := c.svc.ListEntries(0, 0)
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.CreatedAt.Local().Format("2006-01-02 15:04"), it.Mood, it.ID, it.Preview)
	}
	fmt.Fprintf(tw, "%d entries\n", total)
	return tw.Flush()
}

// Export writes every entry to the Markdown archive in dir. An empty dir
// uses the configured archive path.
func Export(ctx context.Context, dir string, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	if dir == "" {
		dir = app.config.Archive.Path
	}
	c, err := app.bootstrap(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	arc, err := archive.Open(dir)
	if err != nil {
		return 0, err
	}
	n, err := arc.Export(ctx, c.entries.List())
	if err != nil {
		return n, err
	}
	c.logger.Info("export finished", slog.String("dir", arc.Root()), slog.Int("files_written", n))
	return n, nil
}

// Import reads every entry file from the Markdown archive in dir and saves
// it. It returns the number of entries that did not exist before.
func Import(ctx context.Context, dir string, opts ...Option) (int, error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, err
	}
	if dir == "" {
		dir = app.config.Archive.Path
	}
	c, err := app.bootstrap(ctx)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	arc, err := archive.Open(dir)
	if err != nil {
		return 0, err
	}
	entries, err := arc.Import(ctx)
	if err != nil {
		return 0, err
	}
	n, err := c.svc.Import(ctx, entries)
	if err != nil {
		return n, err
	}
	c.logger.Info("import finished", slog.String("dir", arc.Root()), slog.Int("read", len(entries)), slog.Int("created", n))
	return n, nil
}
