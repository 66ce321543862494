package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/goliatone/go-formbuilder/internal/app"
	"github.com/goliatone/go-formbuilder/internal/config"
)

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

type env struct {
	app *app.App
	out io.Writer
	in  io.Reader
}

// errInvalid makes the process exit with status 1 after the command already
// reported why.
var errInvalid = errors.New("invalid")

// commands is filled in init: the run functions read it back for usage text.
var commands map[string]command

func init() {
	commands = map[string]command{
		"list":      {"list", "list stored forms", runList},
		"show":      {"show [-format json|yaml] <id>", "print a stored form with its summary", runShow},
		"new":       {"new [-template id] [-title text] [-theme name]", "create a form, optionally from a template", runNew},
		"edit":      {"edit [id]", "edit a form interactively with autosave", runEdit},
		"duplicate": {"duplicate <id>", "copy a form under a new id", runDuplicate},
		"delete":    {"delete [-yes] <id>", "delete a form", runDelete},
		"validate":  {"validate [-values file] [-step n] [-locale code] <id>", "validate a JSON response against a form", runValidate},
		"preview":   {"preview [-format json|form|pretty] [-no-cover] <id>", "fill a form in the terminal", runPreview},
		"export":    {"export [-format json|yaml] [-schema] [-o file] <id>", "export a form or its response schema", runExport},
		"render":    {"render [-renderer name] [-step n] [-values file] [-preset file] <id>", "render a form as HTML or Markdown", runRender},
		"import":    {"import [-id id] [-theme name] <file>", "store a JSON or YAML form document", runImport},
		"templates": {"templates", "list starter templates and cover images", runTemplates},
		"themes":    {"themes", "list themes, tints and font pairings", runThemes},
		"migrate":   {"migrate", "copy summary covers into forms without a background", runMigrate},
		"serve":     {"serve [-addr host:port]", "serve the HTTP API", runServe},
		"token":     {"token -tenant id [-subject id] [-ttl 24h]", "sign an API token", runToken},
	}
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", ".env", "dotenv file (skipped when missing)")
	namespace := flag.String("namespace", "", "override store.namespace")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	opts := []config.LoadOption{config.WithEnvFiles(*envFile)}
	if *configPath != "" {
		opts = append(opts, config.WithFile(*configPath))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *namespace != "" {
		cfg.Store.Namespace = *namespace
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("start: %v", err)
	}

	err = cmd.run(ctx, &env{app: a, out: os.Stdout, in: os.Stdin}, flag.Args()[1:])
	if cerr := a.Close(); cerr != nil {
		a.Logger.Warn("close store", "error", cerr)
	}
	switch {
	case err == nil:
	case errors.Is(err, errInvalid):
		os.Exit(1)
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	default:
		log.Fatalf("%s: %v", name, err)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\nCommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-68s %s\n", commands[name].usage, commands[name].summary)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	flag.PrintDefaults()
}

// subcommand returns a flag set that reports errors instead of exiting.
func subcommand(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s %s\n", filepath.Base(os.Args[0]), commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

func requireID(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return "", flag.ErrHelp
	}
	return fs.Arg(0), nil
}
