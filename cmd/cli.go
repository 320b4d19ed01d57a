// SPDX-License-Identifier: MIT

// Package cmd wires the rendering engine into a command line tool:
// decode an audio file, pick an analysis profile and a time window,
// render a spectrogram PNG with live progress, optionally broadcasting
// the raster over websocket while it fills in.
package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"specgram/internal/config"
	"specgram/internal/decoder"
	"specgram/internal/log"
	"specgram/internal/profile"
	"specgram/internal/render"
	"specgram/internal/transport"
	"specgram/internal/viewport"
	"specgram/internal/waveform"
	"specgram/pkg/build"
)

var (
	configPath  string
	profileName string
	outputFile  string
	width       int
	height      int
	cutoffHz    float64
	startSec    float64
	windowSec   float64
	serveAddr   string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:           build.GetInfo().Name,
	Short:         "Render navigable spectrogram images from audio files",
	Version:       build.GetInfo().Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default specgram.yaml if present)")

	renderCmd := &cobra.Command{
		Use:   "render <audio-file>",
		Short: "Render a spectrogram PNG from a WAV or FLAC file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	renderCmd.Flags().StringVarP(&profileName, "profile", "p", "", "Analysis profile (see 'profiles' command)")
	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "spectrogram.png", "Output PNG path")
	renderCmd.Flags().IntVarP(&width, "width", "W", 0, "Raster width in pixels")
	renderCmd.Flags().IntVarP(&height, "height", "H", 0, "Raster height in pixels")
	renderCmd.Flags().Float64Var(&cutoffHz, "cutoff", 0, "Upper frequency bound in Hz (0 = profile default)")
	renderCmd.Flags().Float64Var(&startSec, "start", 0, "Start of the rendered window in seconds")
	renderCmd.Flags().Float64Var(&windowSec, "window", 0, "Width of the rendered window in seconds (0 = whole clip)")
	renderCmd.Flags().StringVar(&serveAddr, "serve", "", "Broadcast in-progress raster over websocket on this address")
	renderCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the progress bar")
	rootCmd.AddCommand(renderCmd)

	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "List available analysis profiles",
		RunE:  runProfiles,
	}
	rootCmd.AddCommand(profilesCmd)

	infoCmd := &cobra.Command{
		Use:   "info <audio-file>",
		Short: "Show decoded stream facts and frame counts",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}
	infoCmd.Flags().StringVarP(&profileName, "profile", "p", "", "Analysis profile used for frame math")
	rootCmd.AddCommand(infoCmd)
}

// loadSetup resolves config, log level and the profile catalog.
func loadSetup() (*config.Config, *profile.Catalog, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, nil, err
	}
	return cfg, catalog, nil
}

func resolveProfile(cfg *config.Config, catalog *profile.Catalog) (profile.Profile, error) {
	name := profileName
	if name == "" {
		name = cfg.Render.Profile
	}
	return catalog.Lookup(name)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, catalog, err := loadSetup()
	if err != nil {
		return err
	}
	prof, err := resolveProfile(cfg, catalog)
	if err != nil {
		return err
	}
	if width == 0 {
		width = cfg.Render.Width
	}
	if height == 0 {
		height = cfg.Render.Height
	}
	if cutoffHz == 0 {
		cutoffHz = cfg.Render.CutoffHz
	}
	if serveAddr == "" && cfg.Serve.Enabled {
		serveAddr = cfg.Serve.Addr
	}

	clip, err := decoder.Open(args[0])
	if err != nil {
		return err
	}
	if clip.SampleRate != prof.SampleRate {
		log.Warnf("clip sample rate %d Hz differs from profile %q (%d Hz); frequency readout will be scaled",
			clip.SampleRate, prof.Name, prof.SampleRate)
		prof.SampleRate = clip.SampleRate
	}

	totalFrames := prof.FrameCount(len(clip.Samples))
	log.Infof("decoded %s: %d samples at %d Hz (%s), %d frames",
		args[0], len(clip.Samples), clip.SampleRate, clip.Duration().Round(time.Millisecond), totalFrames)
	if totalFrames == 0 {
		return fmt.Errorf("clip is shorter than one analysis window (%d samples)", prof.WindowSize)
	}

	// Zoom/pan state for the requested time window; a window wider than
	// the clip falls back to the full frame range.
	visible := windowSec
	if visible <= 0 {
		visible = clip.Seconds()
	}
	ppf := viewport.PixelsPerFrame(visible, width, prof.HopSize, prof.SampleRate)
	offset := viewport.ClampOffset(startSec/clip.Seconds()*float64(viewport.TimelinePixels(totalFrames, ppf)),
		totalFrames, ppf, width)
	frames := viewport.FrameRangeForWindow(visible, offset, width, totalFrames, clip.Seconds(), prof.SampleRate, prof.HopSize)

	cutoff := prof.MaxFreqBin
	if cutoffHz > 0 {
		cutoff = prof.BinsForFrequency(cutoffHz)
	}

	req := render.Request{
		Samples:    clip.Samples,
		Profile:    prof,
		Cutoff:     cutoff,
		FrameStart: frames.Start,
		FrameEnd:   frames.End,
		Width:      width,
		Height:     height,
	}

	opts := render.Options{FlushColumns: cfg.Render.FlushColumns}
	if serveAddr != "" {
		sink := transport.NewWebSocketSink(serveAddr)
		defer sink.Close()
		opts.Sink = sink
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription("rendering"),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
		)
		opts.OnProgress = func(s render.ProgressSample) {
			_ = bar.Set(s.Percent)
		}
	}

	// Ctrl-C cancels cooperatively; the partial raster is still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raster := render.NewRaster(width, height)
	start := time.Now()
	session, err := render.Start(ctx, req, raster, opts)
	if err != nil {
		return err
	}
	columns, err := session.Wait()
	if err != nil {
		return err
	}
	if bar != nil {
		fmt.Fprintln(os.Stderr)
	}
	if columns < width {
		log.Warnf("render cancelled after %d/%d columns; writing partial image", columns, width)
	} else {
		log.Infof("rendered %d columns over frames [%d, %d) in %s",
			columns, frames.Start, frames.End, time.Since(start).Round(time.Millisecond))
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, raster.Image()); err != nil {
		return fmt.Errorf("encode %s: %w", outputFile, err)
	}
	log.Infof("wrote %s", outputFile)
	return nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	cfg, catalog, err := loadSetup()
	if err != nil {
		return err
	}
	fmt.Printf("%-12s %10s %8s %6s %8s %10s\n", "NAME", "RATE(Hz)", "WINDOW", "HOP", "BINS", "HZ/BIN")
	for _, name := range catalog.Names() {
		p, _ := catalog.Lookup(name)
		marker := " "
		if name == cfg.Render.Profile {
			marker = "*"
		}
		fmt.Printf("%-11s%s %10d %8d %6d %8d %10.2f\n",
			p.Name, marker, p.SampleRate, p.WindowSize, p.HopSize, p.MaxFreqBin, p.BinWidth())
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, catalog, err := loadSetup()
	if err != nil {
		return err
	}
	prof, err := resolveProfile(cfg, catalog)
	if err != nil {
		return err
	}

	clip, err := decoder.Open(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("file:        %s\n", args[0])
	fmt.Printf("samples:     %d\n", len(clip.Samples))
	fmt.Printf("sample rate: %d Hz\n", clip.SampleRate)
	fmt.Printf("duration:    %s\n", clip.Duration().Round(time.Millisecond))
	fmt.Printf("profile:     %s (window %d, hop %d)\n", prof.Name, prof.WindowSize, prof.HopSize)
	fmt.Printf("frames:      %d\n", prof.FrameCount(len(clip.Samples)))

	// Coarse amplitude preview so silence or clipping is obvious at a glance.
	buckets := waveform.Buckets(clip.Samples, 8)
	for i, b := range buckets {
		fmt.Printf("bucket %d:    min %+.3f  max %+.3f  rms %.3f\n", i, b.Min, b.Max, b.RMS)
	}
	return nil
}
