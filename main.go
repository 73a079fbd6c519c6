package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"imged/internal/compositor"
	"imged/internal/config"
	"imged/internal/editor"
	"imged/internal/snapshot"
	"imged/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("imged"),
		kong.Description("Crop images and caption them with a styled title."),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(&args.Globals); err != nil {
		return err
	}

	return nil
}

type Globals struct {
	Config  string `help:"Path to a JSON config file" type:"path"`
	Verbose bool   `help:"Enable verbose logging" default:"false"`
}

type cliArgs struct {
	Globals

	Serve  serveCmd  `cmd:"" default:"withargs" help:"Run the editor web app"`
	Export exportCmd `cmd:"" help:"Caption and crop a single image"`
	Batch  batchCmd  `cmd:"" help:"Run a JSONL file of export operations"`
}

// setup configures logging, loads the config file and returns a context
// canceled on interrupt.
func (g *Globals) setup() (context.Context, context.CancelFunc, *config.Config, error) {
	level := zerolog.InfoLevel
	if g.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).Level(level)
	zerolog.DefaultContextLogger = &log.Logger

	path := g.Config
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx = log.Logger.WithContext(ctx)
	log.Ctx(ctx).Debug().Str("config", path).Msg("configuration loaded")
	return ctx, cancel, cfg, nil
}

func newExporter(cfg *config.Config) (*compositor.Exporter, error) {
	renderer, err := compositor.NewRenderer(compositor.FontConfig{
		RegularPath: cfg.Fonts.Regular,
		BoldPath:    cfg.Fonts.Bold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return compositor.NewExporter(renderer, cfg.Export.JPEGQuality), nil
}

func newStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Kind {
	case "dir":
		return store.NewDirStore(cfg.Dir)
	default:
		return store.NewMemoryStore(), nil
	}
}

type serveCmd struct {
	RootDir  string `arg:"" optional:"" help:"Directory of source images to offer in the editor"`
	Addr     string `help:"Listen address, overrides the config file"`
	Open     bool   `help:"Open the browser automatically when the server starts" default:"true" negatable:""`
	Store    string `help:"Session store kind (memory or dir), overrides the config file"`
	StoreDir string `help:"Directory for the dir session store, overrides the config file"`
}

func (cmd *serveCmd) Run(g *Globals) error {
	ctx, cancel, cfg, err := g.setup()
	if err != nil {
		return err
	}
	defer cancel()

	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}
	if cmd.Store != "" {
		cfg.Store.Kind = cmd.Store
	}
	if cmd.StoreDir != "" {
		cfg.Store.Dir = cmd.StoreDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sessions, err := newStore(cfg.Store)
	if err != nil {
		return err
	}
	exporter, err := newExporter(cfg)
	if err != nil {
		return err
	}

	app := NewWebApp(Config{
		Addr:      cfg.Server.Addr,
		RootDir:   cmd.RootDir,
		ListLimit: cfg.Store.ListLimit,
		Store:     sessions,
		Exporter:  exporter,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Str("store", cfg.Store.Kind).Msgf("Server started at %s", addr)
			if cmd.Open && cfg.Server.OpenBrowser {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type exportCmd struct {
	Image   string `arg:"" optional:"" help:"Source image file; may be omitted when --slot holds a saved session" type:"existingfile"`
	Output  string `short:"o" help:"Output file; defaults to the download name in the configured output directory"`
	Session string `help:"Session JSON whose settings are applied first" type:"existingfile"`
	Slot    string `help:"Autosave directory: the saved session is resumed first and the result is saved back" type:"path"`

	Title  string `short:"t" help:"Caption text; use \\n for line breaks"`
	Preset string `help:"Title preset (medium, center, overlay)"`
	Size   string `help:"Title size (small, medium, large)"`
	Weight string `help:"Title weight (regular, bold)"`
	Color  string `help:"Title color (white, black, accent)"`
	Align  string `help:"Title alignment (left, center, right)"`
	Aspect string `help:"Crop to an aspect ratio (1:1, 4:5, 16:9)"`
	Name   string `help:"Download name without extension"`
	Format string `help:"Output format (png, jpeg)"`
}

func (cmd *exportCmd) Run(g *Globals) error {
	ctx, cancel, cfg, err := g.setup()
	if err != nil {
		return err
	}
	defer cancel()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return err
	}

	ed := editor.New()
	var slot *store.Slot
	if cmd.Slot != "" {
		slot = store.NewSlot(cmd.Slot, "")
		if ed.Hydrate(ctx, slot) {
			log.Ctx(ctx).Debug().Str("original", ed.OriginalFileName()).Msg("resumed saved session")
		}
	}
	if err := cmd.load(ed); err != nil {
		return err
	}
	if !ed.HasImage() {
		return fmt.Errorf("no image: pass one or resume a saved session with --slot")
	}
	if err := cmd.apply(ed); err != nil {
		return err
	}
	ed.Save()

	exp, ok := ed.Download(ctx, exporter)
	if !ok {
		return fmt.Errorf("nothing exported: %s could not be decoded", ed.OriginalFileName())
	}
	if slot != nil {
		if err := ed.Persist(ctx, slot); err != nil {
			return err
		}
	}

	output := cmd.Output
	if output == "" {
		output = filepath.Join(cfg.Export.OutputDir, exp.Filename)
	}
	if err := writeOutput(output, exp.Data); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("output", output).
		Int("width", exp.Width).
		Int("height", exp.Height).
		Msg("exported")
	return nil
}

// load reads the image given on the command line, keeping the current style,
// then applies the --session file.
func (cmd *exportCmd) load(ed *editor.Editor) error {
	if cmd.Image != "" {
		data, err := os.ReadFile(cmd.Image)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		upload := &editor.Upload{
			Name: filepath.Base(cmd.Image),
			MIME: http.DetectContentType(data),
			Data: data,
		}
		if err := ed.Load(upload); err != nil {
			return fmt.Errorf("%s: %w", cmd.Image, err)
		}
	}

	if cmd.Session == "" {
		return nil
	}
	sess, err := readSessionFile(cmd.Session)
	if err != nil {
		return err
	}
	// Keep the current image.
	sess.ImageDataURL = ""
	sess.OriginalFileName = ""
	ed.Restore(sess)
	return nil
}

func (cmd *exportCmd) apply(ed *editor.Editor) error {
	if cmd.Title != "" {
		ed.SetTitle(unescapeNewlines(cmd.Title))
	}
	if cmd.Preset != "" {
		p := snapshot.TitlePreset(cmd.Preset)
		if !p.Valid() {
			return fmt.Errorf("unknown title preset %q", cmd.Preset)
		}
		ed.SetPreset(p)
	}
	if cmd.Size != "" {
		level, err := parseSizeLevel(cmd.Size)
		if err != nil {
			return err
		}
		ed.SetSizeLevel(level)
	}
	if cmd.Weight != "" {
		w := snapshot.Weight(cmd.Weight)
		if !w.Valid() {
			return fmt.Errorf("unknown title weight %q", cmd.Weight)
		}
		ed.SetWeight(w)
	}
	if cmd.Color != "" {
		c := snapshot.Color(cmd.Color)
		if !c.Valid() {
			return fmt.Errorf("unknown title color %q", cmd.Color)
		}
		ed.SetColor(c)
	}
	if cmd.Align != "" {
		a := snapshot.Align(cmd.Align)
		if !a.Valid() {
			return fmt.Errorf("unknown title alignment %q", cmd.Align)
		}
		ed.SetAlign(a)
	}
	if cmd.Aspect != "" {
		if err := ed.ApplyCropPreset(cmd.Aspect); err != nil {
			return err
		}
	}
	if cmd.Name != "" {
		ed.SetDownloadName(cmd.Name)
	}
	if cmd.Format != "" {
		f, err := snapshot.ParseFormat(cmd.Format)
		if err != nil {
			return err
		}
		ed.SetDownloadFormat(f)
	}
	return nil
}

func parseSizeLevel(s string) (snapshot.SizeLevel, error) {
	for _, l := range []snapshot.SizeLevel{snapshot.SizeSmall, snapshot.SizeMedium, snapshot.SizeLarge} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown title size %q", s)
}

// unescapeNewlines turns a literal \n typed on the command line into a line break.
func unescapeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

type batchCmd struct {
	File        string `arg:"" help:"JSONL file of operations, or - for stdin"`
	BaseDir     string `help:"Directory relative paths in operations are resolved against" default:"." type:"path"`
	OutputDir   string `help:"Directory to write results to, overrides the config file" type:"path"`
	Concurrency int    `help:"Maximum parallel operations, overrides the config file"`
	JSON        bool   `help:"Output operations in JSON format without executing"`
}

func (cmd *batchCmd) Run(g *Globals) error {
	ctx, cancel, cfg, err := g.setup()
	if err != nil {
		return err
	}
	defer cancel()

	if cmd.OutputDir != "" {
		cfg.Export.OutputDir = cmd.OutputDir
	}
	if cmd.Concurrency > 0 {
		cfg.Export.Concurrency = cmd.Concurrency
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	in := os.Stdin
	if cmd.File != "-" {
		f, err := os.Open(cmd.File)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		in = f
	}
	ops, err := ReadOperations(in)
	if err != nil {
		return err
	}

	if cmd.JSON {
		printJSONL(ops)
		return nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return err
	}
	executor := &OperationExecutor{
		BaseDir:     cmd.BaseDir,
		OutputDir:   cfg.Export.OutputDir,
		Exporter:    exporter,
		Concurrency: cfg.Export.Concurrency,
	}
	return executor.Exec(ctx, ops)
}

func printJSONL[T any](data []T) {
	enc := json.NewEncoder(os.Stdout)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
