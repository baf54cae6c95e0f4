package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"readinglist/internal/app"
	"readinglist/internal/commands"
	"readinglist/internal/config"
	"readinglist/internal/logger"
)

type Options struct {
	Verbose  bool   `short:"v" long:"verbose" description:"Show verbose logging"`
	Database string `short:"d" long:"database" description:"Path of the SQLite database" env:"DATABASE_PATH"`
}

var options Options

// Setup subcommands

type Add struct {
	Title    string   `short:"t" long:"title" description:"Title; defaults to the fetched page title or the URL"`
	Tags     []string `short:"g" long:"tag" description:"Tag name, created when missing. May repeat"`
	Priority string   `short:"p" long:"priority" description:"low, medium, high or urgent"`
	Notes    string   `short:"n" long:"notes" description:"Markdown notes"`
	NoFetch  bool     `long:"no-fetch" description:"Do not fetch page metadata"`

	Positional struct {
		URL string `positional-arg-name:"URL" required:"yes"`
	} `positional-args:"yes"`
}

func (r *Add) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Add(ctx, commands.AddOptions{
			URL:      r.Positional.URL,
			Title:    r.Title,
			Tags:     r.Tags,
			Priority: r.Priority,
			Notes:    r.Notes,
			Fetch:    !r.NoFetch,
		})
	})
}

type List struct {
	Status     string   `short:"s" long:"status" description:"unread, reading, completed or archived"`
	Priority   string   `short:"p" long:"priority" description:"low, medium, high or urgent"`
	Tags       []string `short:"g" long:"tag" description:"Tag name. May repeat; items must carry every tag"`
	Query      string   `short:"q" long:"query" description:"Text to search for in title, description, URL and notes"`
	Collection string   `short:"c" long:"collection" description:"Only list members of this collection"`
	Sort       string   `long:"sort" description:"dateAdded, priority, readingTime, title or domain"`
	Direction  string   `long:"dir" description:"asc or desc"`
}

func (r *List) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.List(ctx, commands.ListOptions{
			Status:     r.Status,
			Priority:   r.Priority,
			Tags:       r.Tags,
			Query:      r.Query,
			Collection: r.Collection,
			Sort:       r.Sort,
			Direction:  r.Direction,
		})
	})
}

type Status struct {
	Positional struct {
		ID     string `positional-arg-name:"ID" required:"yes" description:"Item identifier or a unique prefix"`
		Status string `positional-arg-name:"STATUS" required:"yes"`
	} `positional-args:"yes"`
}

func (r *Status) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.SetStatus(ctx, r.Positional.ID, r.Positional.Status)
	})
}

type Remove struct {
	Positional struct {
		ID string `positional-arg-name:"ID" required:"yes" description:"Item identifier or a unique prefix"`
	} `positional-args:"yes"`
}

func (r *Remove) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Remove(ctx, r.Positional.ID)
	})
}

type Stats struct{}

func (r *Stats) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Stats(ctx)
	})
}

type Tags struct{}

func (r *Tags) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Tags(ctx)
	})
}

type Collections struct{}

func (r *Collections) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Collections(ctx)
	})
}

type Export struct {
	Format string `short:"f" long:"format" default:"json" choice:"json" choice:"csv" description:"Export format"`
	Output string `short:"o" long:"output" description:"File to write; defaults to stdout"`
}

func (r *Export) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Export(ctx, r.Format, r.Output)
	})
}

type Import struct {
	Positional struct {
		Source string `positional-arg-name:"FILE" required:"yes" description:"JSON backup file"`
	} `positional-args:"yes"`
}

func (r *Import) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Import(ctx, r.Positional.Source)
	})
}

type Fetch struct {
	Positional struct {
		URL string `positional-arg-name:"URL" required:"yes"`
	} `positional-args:"yes"`
}

func (r *Fetch) Execute(args []string) error {
	return run(func(ctx context.Context, cmds *commands.Commands) error {
		return cmds.Fetch(ctx, r.Positional.URL)
	})
}

// run opens the application for a single command and closes it afterwards
func run(fn func(ctx context.Context, cmds *commands.Commands) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if options.Database != "" {
		cfg.DatabasePath = options.Database
	}
	// The server owns the on-disk queue and its lock
	cfg.ConnectivityURL = ""
	cfg.QueueDir = ""

	log := logger.Discard()
	if options.Verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.Output = os.Stderr
		log = logger.New(cfg.Logging)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	err = fn(ctx, commands.New(a, os.Stdout))
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func main() {
	parser := flags.NewParser(&options, flags.Default)

	parser.AddCommand("add", "Add item", "Save a link to the reading list", &Add{})
	parser.AddCommand("list", "List items", "List items, optionally filtered", &List{})
	parser.AddCommand("status", "Set status", "Change the reading status of an item", &Status{})
	parser.AddCommand("remove", "Remove item", "Delete an item", &Remove{})
	parser.AddCommand("stats", "Show statistics", "Summarize the reading list", &Stats{})
	parser.AddCommand("tags", "List tags", "List tags by usage", &Tags{})
	parser.AddCommand("collections", "List collections", "List collections with member counts", &Collections{})
	parser.AddCommand("export", "Export backup", "Export the reading list as JSON or CSV", &Export{})
	parser.AddCommand("import", "Import backup", "Merge a JSON backup into the reading list", &Import{})
	parser.AddCommand("fetch", "Preview metadata", "Fetch page metadata without saving", &Fetch{})

	_, err := parser.Parse()
	if err != nil {
		if flagErr, ok := err.(*flags.Error); ok && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		if _, ok := err.(*flags.Error); !ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		parser.WriteHelp(os.Stdout)
		os.Exit(2)
	}
}
