// Command drawerz is the animated drawing engine.
//
// Usage:
//
//	drawerz serve  [-config f] [-in drawing.drz] [-autosave]
//	drawerz export [-config f] -in drawing.drz [-format gif] [-quality medium] [-fps 30] [-duration 15s] [-out dir]
//	drawerz render [-config f] -in drawing.drz [-t 1.5] -out frame.png|frame.pdf
//	drawerz info   -in drawing.drz
//	drawerz discover [-timeout 2s]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gogpu/gg"
	"golang.org/x/sync/errgroup"

	"Drawerz/internal/capture"
	"Drawerz/internal/config"
	"Drawerz/internal/doc"
	"Drawerz/internal/export"
	"Drawerz/internal/render"
	"Drawerz/internal/session"
	"Drawerz/internal/share"
)

const usage = `usage: drawerz <command> [flags]

commands:
  serve    share a live drawing session over HTTP and websockets
  export   render a drawing to an animated clip
  render   render one frame of a drawing to PNG or PDF
  info     describe a drawing file
  discover list drawing sessions shared on the local network
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "render":
		err = runRender(args)
	case "info":
		err = runInfo(os.Stdout, args)
	case "discover":
		err = runDiscover(os.Stdout, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "drawerz: unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		slog.Error("drawerz: fatal", "error", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the process logger.
func setup(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))
	capture.SetLogger(logger.With("component", "capture"))
	export.SetLogger(logger.With("component", "export"))
	return cfg, logger, nil
}

func newSession(cfg *config.Config, logger *slog.Logger, exportDir string) *session.Session {
	if exportDir == "" {
		exportDir = cfg.Export.Dir
	}
	return session.New(session.Config{
		Width:      cfg.Canvas.Width,
		Height:     cfg.Canvas.Height,
		HistoryCap: cfg.History.Cap,
		RefreshHz:  cfg.Animation.RefreshHz,
		ExportDir:  exportDir,
		FFmpeg:     cfg.Export.FFmpeg,
		Logger:     logger,
	})
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to drawerz.yaml")
	in := fs.String("in", "", "drawing to open")
	autosave := fs.Bool("autosave", false, "write the drawing back to -in on shutdown")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *autosave && *in == "" {
		return errors.New("serve: -autosave needs -in")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	sess := newSession(cfg, logger, "")
	defer sess.Close()

	if *in != "" {
		if err := sess.LoadFile(*in); err != nil && !(*autosave && errors.Is(err, os.ErrNotExist)) {
			return err
		}
	}

	srv := share.New(sess, share.Config{
		Addr:    cfg.Share.Addr,
		FrameHz: cfg.Share.FrameHz,
		Export:  cfg.ExportOptions(),
		Logger:  logger,
	})
	if link, err := share.ShareLink(cfg.Share.Addr); err != nil {
		logger.Warn("share link unavailable", "err", err)
	} else {
		logger.Info("share this link", "url", link, "websocket", "ws"+strings.TrimPrefix(link, "http")+"/ws")
	}

	if cfg.Share.Advertise {
		mdnsServer, err := share.Advertise(cfg.Share.Addr)
		if err != nil {
			logger.Warn("mDNS advertising disabled", "err", err)
		} else {
			defer mdnsServer.Shutdown()
			logger.Info("advertising session", "service", share.ServiceType)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if *autosave {
		g.Go(func() error {
			<-gctx.Done()
			return sess.SaveFile(*in)
		})
	}
	return g.Wait()
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to drawerz.yaml")
	in := fs.String("in", "", "drawing to export")
	format := fs.String("format", "", "gif, pdf, mp4 or webm")
	quality := fs.String("quality", "", "low, medium or high")
	fps := fs.Int("fps", 0, "frames per second (30 or 60)")
	duration := fs.Duration("duration", 0, "clip length (5s to 15s)")
	out := fs.String("out", "", "output directory")
	width := fs.Int("width", 0, "output width in pixels (default: canvas)")
	height := fs.Int("height", 0, "output height in pixels (default: canvas)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("export: -in is required")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	if *fps != 0 {
		cfg.Export.FPS = *fps
	}
	if *duration != 0 {
		cfg.Export.Duration = *duration
	}
	if *quality != "" {
		cfg.Export.Quality = *quality
	}
	if *format != "" {
		cfg.Export.Format = *format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sess := newSession(cfg, logger, *out)
	defer sess.Close()
	if err := sess.LoadFile(*in); err != nil {
		return err
	}

	opts := cfg.ExportOptions()
	opts.Width, opts.Height = *width, *height
	step := max(1, opts.Frames()/10)
	progress := func(done, total int) {
		if done%step == 0 || done == total {
			logger.Info("exporting", "frame", done, "of", total)
		}
	}
	path, err := sess.Export(ctx, opts, progress)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to drawerz.yaml")
	in := fs.String("in", "", "drawing to render")
	t := fs.Float64("t", 0, "animation time in seconds")
	out := fs.String("out", "", "output file, .png or .pdf")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("render: -in and -out are required")
	}
	if _, _, err := setup(*configPath); err != nil {
		return err
	}

	d, err := doc.LoadFile(*in)
	if err != nil {
		return err
	}
	r := render.New(d.Width, d.Height)

	var encode func(io.Writer) error
	switch ext := strings.ToLower(filepath.Ext(*out)); ext {
	case ".png":
		img, err := r.Frame(d.Layers, *t, render.Options{Export: true})
		if err != nil {
			return err
		}
		encode = func(w io.Writer) error { return png.Encode(w, img) }
	case ".pdf":
		encode = func(w io.Writer) error { return r.PDF(w, d.Layers, *t) }
	default:
		return fmt.Errorf("render: unsupported output %q, want .png or .pdf", ext)
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(*out)
		return err
	}
	return f.Close()
}

func runInfo(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	in := fs.String("in", "", "drawing to describe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("info: -in is required")
	}

	d, err := doc.LoadFile(*in)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "version  %s\n", d.Version)
	fmt.Fprintf(w, "canvas   %dx%d\n", d.Width, d.Height)
	fmt.Fprintf(w, "layers   %d\n", len(d.Layers))
	for i := len(d.Layers) - 1; i >= 0; i-- {
		l := d.Layers[i]
		mark := " "
		if l.ID == d.ActiveID {
			mark = "*"
		}
		vis := "visible"
		if !l.Visible {
			vis = "hidden"
		}
		a := l.Animation
		fmt.Fprintf(w, "%s %-20s %4d strokes  %-7s opacity %.2f  jiggle %g float %g thickness %g sketchy %g shake %g speed %g\n",
			mark, l.Name, len(l.Strokes), vis, l.Opacity,
			a.Jiggle, a.Float, a.Thickness, a.Sketchy, a.Shake, a.Speed)
	}
	return nil
}

func runDiscover(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	timeout := fs.Duration("timeout", share.DefaultBrowseTimeout, "how long to listen for answers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, _, err := setup(""); err != nil {
		return err
	}

	peers, err := share.Browse(*timeout)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		fmt.Fprintln(w, "no sessions found")
		return nil
	}
	for _, p := range peers {
		fmt.Fprintf(w, "%-24s %s\n", p.Name, p.Link())
	}
	return nil
}
