// Command kritactl manages a Krita AI Diffusion plugin installation from the
// terminal: it checks the release feed for new plugin versions, installs
// updates in place, and browses the local LoRA model collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"kritactl/internal/config"
	"kritactl/internal/debug"
	"kritactl/internal/lora"
	"kritactl/internal/plugin"
	"kritactl/internal/update"
)

const usageText = `Usage: kritactl [flags] <command> [command flags]

Commands:
  check     Check the release feed for a new plugin version
  update    Check and install a new plugin version when available
  status    Show the installed plugin and active configuration
  loras     List LoRA model files (subcommands: set-trigger, set-strength)

Flags:
`

func main() {
	versionFlag := flag.Bool("version", false, "Print version information and exit")
	debugFlag := flag.Bool("debug", false, "Enable debug logging to ~/.kritactl/debug.log")
	pluginDirFlag := flag.String("plugin-dir", "", "Krita plugin directory (overrides config)")
	loraDirFlag := flag.String("lora-dir", "", "LoRA model directory (overrides config)")
	dbPathFlag := flag.String("db-path", "", "Path to the LoRA metadata database (overrides config)")
	outputFormatFlag := flag.String("output-format", "", "Release notes style (rich, light, plain)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usageText)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		printVersion(os.Stdout)
		os.Exit(0)
	}

	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}

	if err := debug.Init(*debugFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing debug log: %v\n", err)
		os.Exit(1)
	}
	defer debug.Close()

	visited := map[string]struct{}{}
	flag.CommandLine.Visit(func(f *flag.Flag) {
		visited[f.Name] = struct{}{}
	})

	runtime := computeRuntimeOptions(runtimeFlags{
		pluginDir:    pluginDirFlag,
		loraDir:      loraDirFlag,
		dbPath:       dbPathFlag,
		outputFormat: outputFormatFlag,
	}, visited)

	command := flag.Arg(0)
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}

	var err error
	switch command {
	case "check":
		err = cmdCheck(os.Stdout, runtime)
	case "update":
		err = cmdUpdate(os.Stdout, runtime)
	case "status":
		err = cmdStatus(os.Stdout, runtime)
	case "loras":
		err = cmdLoras(os.Stdout, runtime, args)
	case "":
		flag.Usage()
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		debug.Close()
		os.Exit(1)
	}
}

type runtimeFlags struct {
	pluginDir    *string
	loraDir      *string
	dbPath       *string
	outputFormat *string
}

type runtimeOptions struct {
	pluginDir    string
	loraDir      string
	dbPath       string
	outputFormat string
	owner        string
	repo         string
	checkTimeout time.Duration
}

func computeRuntimeOptions(flags runtimeFlags, visited map[string]struct{}) runtimeOptions {
	pluginDir := strings.TrimSpace(config.GetString(config.KeyPluginDir))
	if flagWasExplicitlySet("plugin-dir", visited) {
		pluginDir = strings.TrimSpace(*flags.pluginDir)
	}

	loraDir := strings.TrimSpace(config.GetString(config.KeyLoraDir))
	if flagWasExplicitlySet("lora-dir", visited) {
		loraDir = strings.TrimSpace(*flags.loraDir)
	}

	dbPath := strings.TrimSpace(config.GetString(config.KeyDatabasePath))
	if flagWasExplicitlySet("db-path", visited) {
		dbPath = strings.TrimSpace(*flags.dbPath)
	}

	outputFormat := strings.TrimSpace(config.GetString(config.KeyOutputFormat))
	if flagWasExplicitlySet("output-format", visited) {
		outputFormat = strings.TrimSpace(*flags.outputFormat)
	}

	return runtimeOptions{
		pluginDir:    pluginDir,
		loraDir:      loraDir,
		dbPath:       dbPath,
		outputFormat: outputFormat,
		owner:        config.GetString(config.KeyGithubOwner),
		repo:         config.GetString(config.KeyGithubRepo),
		checkTimeout: config.CheckTimeout(),
	}
}

func flagWasExplicitlySet(name string, visited map[string]struct{}) bool {
	if _, ok := visited[name]; ok {
		return true
	}
	f := flag.CommandLine.Lookup(name)
	if f == nil {
		return false
	}
	return f.Value.String() != f.DefValue
}

// newCoordinator detects the installed plugin and wires a coordinator for it.
func newCoordinator(opts runtimeOptions) (*update.Coordinator, error) {
	info, err := plugin.Detect(opts.pluginDir)
	if err != nil {
		return nil, err
	}
	checker := update.NewChecker(opts.owner, opts.repo,
		update.WithCheckTimeout(opts.checkTimeout))
	return update.NewCoordinator(checker, opts.pluginDir, info.Version), nil
}

func cmdCheck(w io.Writer, opts runtimeOptions) error {
	coord, err := newCoordinator(opts)
	if err != nil {
		return err
	}

	coord.Check(context.Background())

	fmt.Fprintf(w, "Installed: %s\n", coord.CurrentVersion())
	if latest := coord.LatestVersion.Get(); latest != "" {
		fmt.Fprintf(w, "Latest:    %s\n", latest)
	}
	fmt.Fprintln(w, renderState(coord.State.Get()))

	if coord.State.Get().Failed() {
		fmt.Fprintln(w, styleMuted.Render(coord.Error.Get()))
		return nil
	}

	if coord.IsAvailable() {
		if note := formatVersionComparison(coord.CurrentVersion(), coord.LatestVersion.Get()); note != "" {
			fmt.Fprintln(w, note)
		}
		printReleaseNotes(w, coord.LatestRelease(), opts.outputFormat)
		fmt.Fprintln(w, styleMuted.Render("Run 'kritactl update' to install."))
	}
	return nil
}

func cmdUpdate(w io.Writer, opts runtimeOptions) error {
	coord, err := newCoordinator(opts)
	if err != nil {
		return err
	}

	// Echo every lifecycle transition as it happens.
	cancel := coord.State.Subscribe(func(state update.UpdateState) {
		fmt.Fprintln(w, renderState(state))
	})
	defer cancel()

	ctx := context.Background()
	coord.Check(ctx)
	if coord.State.Get().Failed() {
		fmt.Fprintln(w, styleMuted.Render(coord.Error.Get()))
		return nil
	}
	if !coord.IsAvailable() {
		return nil
	}

	fmt.Fprintf(w, "Updating %s -> %s\n", coord.CurrentVersion(), coord.LatestVersion.Get())
	coord.Run(ctx)
	if coord.State.Get().Failed() {
		fmt.Fprintln(w, styleMuted.Render(coord.Error.Get()))
	}
	return nil
}

func cmdStatus(w io.Writer, opts runtimeOptions) error {
	fmt.Fprintln(w, styleHeading.Render("kritactl status"))

	info, err := plugin.Detect(opts.pluginDir)
	if err != nil {
		fmt.Fprintf(w, "Plugin:      %s\n", styleFail.Render("not found"))
		fmt.Fprintln(w, styleMuted.Render(err.Error()))
	} else {
		fmt.Fprintf(w, "Plugin:      %s %s\n", styleOK.Render("installed"), info.Version)
	}

	fmt.Fprintf(w, "Plugin dir:  %s\n", valueOrUnset(opts.pluginDir))
	fmt.Fprintf(w, "LoRA dir:    %s\n", valueOrUnset(opts.loraDir))
	fmt.Fprintf(w, "Database:    %s\n", valueOrUnset(opts.dbPath))
	fmt.Fprintf(w, "Release feed: github.com/%s/%s\n", opts.owner, opts.repo)
	if debug.Enabled() {
		if logPath, err := debug.GetLogPath(); err == nil {
			fmt.Fprintf(w, "Debug log:   %s\n", logPath)
		}
	}
	return nil
}

func valueOrUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return styleMuted.Render("(not set)")
	}
	return s
}

func cmdLoras(w io.Writer, opts runtimeOptions, args []string) error {
	fs := flag.NewFlagSet("loras", flag.ContinueOnError)
	folderFlag := fs.String("folder", "", "Restrict the listing to one folder")
	searchFlag := fs.String("search", "", "Filter by name or path substring")
	watchFlag := fs.Bool("watch", false, "Keep running and reprint on directory changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.loraDir == "" {
		return fmt.Errorf("no LoRA directory configured; set lora.dir or pass -lora-dir")
	}

	coll := lora.NewCollection(metaStore(opts))
	ctx := context.Background()
	if err := coll.Scan(ctx, opts.loraDir); err != nil {
		return err
	}

	switch fs.Arg(0) {
	case "set-trigger":
		if fs.NArg() != 3 {
			return fmt.Errorf("usage: kritactl loras set-trigger <id> <triggers>")
		}
		return coll.SetTriggers(ctx, fs.Arg(1), fs.Arg(2))
	case "set-strength":
		if fs.NArg() != 3 {
			return fmt.Errorf("usage: kritactl loras set-strength <id> <strength>")
		}
		strength, err := strconv.ParseFloat(fs.Arg(2), 64)
		if err != nil {
			return fmt.Errorf("parse strength %q: %w", fs.Arg(2), err)
		}
		return coll.SetStrength(ctx, fs.Arg(1), strength)
	case "":
		// fall through to listing
	default:
		return fmt.Errorf("unknown loras subcommand: %s", fs.Arg(0))
	}

	filter := lora.Filter{Folder: *folderFlag, Search: *searchFlag}
	printListing(w, coll, filter)

	if !*watchFlag {
		return nil
	}
	return watchLoras(w, coll, opts.loraDir, filter)
}

func metaStore(opts runtimeOptions) lora.MetaStore {
	if opts.dbPath == "" {
		return nil
	}
	return lora.NewSQLiteStore(opts.dbPath)
}

func printListing(w io.Writer, coll *lora.Collection, filter lora.Filter) {
	listing := coll.List(filter)
	if len(listing.Root) == 0 && len(listing.Groups) == 0 {
		fmt.Fprintln(w, styleMuted.Render("no LoRA files found"))
		return
	}

	for _, f := range listing.Root {
		printLoraFile(w, f, "")
	}
	for _, g := range listing.Groups {
		fmt.Fprintln(w, styleHeading.Render(g.Name+"/"))
		for _, f := range g.Files {
			printLoraFile(w, f, "  ")
		}
	}
}

func printLoraFile(w io.Writer, f lora.File, indent string) {
	line := fmt.Sprintf("%s%s  %s", indent, f.Name, styleMuted.Render(fmt.Sprintf("(%.2f)", f.Strength)))
	if f.Triggers != "" {
		line += "  " + styleBusy.Render(f.Triggers)
	}
	fmt.Fprintln(w, line)
}

// watchLoras blocks, rescanning and reprinting the listing whenever the
// directory tree changes, until interrupted.
func watchLoras(w io.Writer, coll *lora.Collection, dir string, filter lora.Filter) error {
	ctx := context.Background()
	watcher, err := lora.WatchDir(dir, 0, func() {
		if err := coll.Scan(ctx, dir); err != nil {
			debug.Logf("loras: rescan: %v", err)
			return
		}
		fmt.Fprintln(w)
		printListing(w, coll, filter)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer func() { _ = watcher.Close() }()

	fmt.Fprintln(w, styleMuted.Render("watching for changes, Ctrl-C to stop"))
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func printReleaseNotes(w io.Writer, release *update.ReleaseInfo, format string) {
	if release == nil || strings.TrimSpace(release.Body) == "" {
		return
	}
	render := buildMarkdownRenderer(format, notesWrapWidth)
	fmt.Fprintln(w, styleHeading.Render("Release notes"))
	fmt.Fprintln(w, render(release.Body))
	if release.HTMLURL != "" {
		fmt.Fprintln(w, styleMuted.Render(release.HTMLURL))
	}
}
