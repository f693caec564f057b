package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/df07/go-nerf/pkg/export"
	"github.com/df07/go-nerf/pkg/loaders"
	"github.com/df07/go-nerf/pkg/renderer"
	"github.com/df07/go-nerf/pkg/scene"
	"github.com/df07/go-nerf/pkg/train"
	"github.com/df07/go-nerf/web/server"
)

func main() {
	app := &cli.App{
		Name:  "nerf",
		Usage: "Render radiance fields along camera paths",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "v",
				Usage: "Enable verbose logging",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log every chunk",
			},
		},
		Before: func(cCtx *cli.Context) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			switch {
			case cCtx.Bool("debug"):
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			case cCtx.Bool("v"):
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			default:
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
			return nil
		},
		Commands: []cli.Command{
			{
				Name:      "render",
				Usage:     "Render a scene's camera path to PNG (and optionally EXR) frames",
				ArgsUsage: "<scene name or file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output_dir",
						Usage: "Root directory for frames (default: the scene's output_dir)",
					},
					&cli.IntFlag{
						Name:  "frames",
						Usage: "Render at most this many frames (0 = whole path)",
					},
					&cli.IntFlag{
						Name:  "render_factor",
						Usage: "Downsample images by this factor for a fast preview",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Frames rendered in parallel (0 = scene setting or CPU count)",
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed for per-ray randomness (0 = scene setting or random)",
					},
					&cli.BoolFlag{
						Name:  "exr",
						Usage: "Also write float32 OpenEXR frames",
					},
					&cli.BoolFlag{
						Name:  "colormap",
						Usage: "Shade disparity through a colormap instead of grayscale",
					},
				},
				Action: renderCommand,
			},
			{
				Name:      "probe",
				Usage:     "Render shuffled training batches and report loss against the dataset",
				ArgsUsage: "<scene name or file>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch",
						Usage: "Rays per batch (N_rand)",
						Value: 1024,
					},
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of batches to render",
						Value: 4,
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Seed for shuffling and per-ray randomness",
						Value: 1,
					},
				},
				Action: probeCommand,
			},
			{
				Name:  "serve",
				Usage: "Serve the path preview and ray inspection API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Port to serve on",
						Value: 8080,
					},
					&cli.StringFlag{
						Name:  "scenes",
						Usage: "Directory of scene files (default: ./scenes)",
					},
				},
				Action: func(cCtx *cli.Context) error {
					webServer := server.NewServer(cCtx.Int("port"), cCtx.String("scenes"), log.Logger)
					fmt.Printf("Visit http://localhost:%d/api/scenes to list scenes\n", cCtx.Int("port"))
					return webServer.Start()
				},
			},
			{
				Name:   "info",
				Usage:  "List built-in scenes and scene files",
				Action: infoCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("nerf failed")
	}
}

// createScene resolves a scene by built-in name or file
func createScene(sceneRef string) (*loaders.SceneConfig, error) {
	if sceneRef == "" {
		return nil, fmt.Errorf("no scene given (try 'nerf info')")
	}
	return scene.Load(sceneRef)
}

// sceneBaseName derives a directory name from a scene name or path
func sceneBaseName(sceneRef string) string {
	base := filepath.Base(sceneRef)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// createOutputDir creates <root>/<scene> and returns its path
func createOutputDir(root, sceneRef string) (string, error) {
	if root == "" {
		root = "renders"
	}
	outputDir := filepath.Join(root, sceneBaseName(sceneRef))
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return outputDir, nil
}

func renderCommand(cCtx *cli.Context) error {
	sceneRef := cCtx.Args().First()
	if sceneRef == "" {
		sceneRef = "orb"
	}
	cfg, err := createScene(sceneRef)
	if err != nil {
		return err
	}

	r, err := scene.NewRenderer(cfg, cCtx.Uint64("seed"), log.Logger)
	if err != nil {
		return err
	}
	path, err := scene.BuildPath(cfg, cCtx.Int("frames"))
	if err != nil {
		return err
	}

	root := cCtx.String("output_dir")
	if root == "" {
		root = cfg.OutputDir
	}
	outputDir, err := createOutputDir(root, sceneRef)
	if err != nil {
		return err
	}

	pathOpts := renderer.PathOptions{
		RenderFactor: cfg.Path.RenderFactor,
		NumWorkers:   cfg.Path.Workers,
		PSNRCap:      cfg.Path.PSNRCap,
	}
	if f := cCtx.Int("render_factor"); f > 0 {
		pathOpts.RenderFactor = f
	}
	if w := cCtx.Int("workers"); w > 0 {
		pathOpts.NumWorkers = w
	}
	writeEXR := cfg.EXR || cCtx.Bool("exr")
	pathOpts.Sink = func(frame renderer.Frame) error {
		return writeFrame(outputDir, frame, writeEXR)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Rendering %s: %d frames at %dx%d\n", cfg.Name, len(path.Poses), path.Intrinsics.Width, path.Intrinsics.Height)
	startTime := time.Now()
	frames, err := r.Evaluation().RenderPath(ctx, path.Poses, path.Intrinsics, path.GroundTruth, pathOpts)
	if err != nil {
		return err
	}

	if err := writeDisparity(outputDir, frames, cCtx.Bool("colormap")); err != nil {
		return err
	}

	fmt.Printf("Render completed in %v\n", time.Since(startTime))
	if len(path.GroundTruth) > 0 {
		fmt.Printf("Mean PSNR: %.2f dB\n", renderer.MeanPSNR(frames))
	}
	fmt.Printf("Frames saved to %s\n", outputDir)
	return nil
}

// writeFrame writes the rgb frame as it completes
func writeFrame(outputDir string, frame renderer.Frame, writeEXR bool) error {
	img := frame.Output.Image()
	if err := export.WritePNG(filepath.Join(outputDir, fmt.Sprintf("rgb_%03d.png", frame.Index)), img); err != nil {
		return err
	}
	if writeEXR {
		return export.WriteEXR(filepath.Join(outputDir, fmt.Sprintf("rgb_%03d.exr", frame.Index)), img, frame.Output.Opacity)
	}
	return nil
}

// writeDisparity writes every frame's disparity normalized by the path maximum
func writeDisparity(outputDir string, frames []renderer.Frame, colormap bool) error {
	disps := make([][]float64, len(frames))
	for i, frame := range frames {
		disps[i] = frame.Output.Disparity
	}
	maxDisp := export.MaxDisparity(disps...)
	for _, frame := range frames {
		out := frame.Output
		name := filepath.Join(outputDir, fmt.Sprintf("disp_%03d.png", frame.Index))
		if err := export.WriteDisparityPNG(name, out.Disparity, out.Width, out.Height, maxDisp, colormap); err != nil {
			return err
		}
	}
	return nil
}

func probeCommand(cCtx *cli.Context) error {
	cfg, err := createScene(cCtx.Args().First())
	if err != nil {
		return err
	}
	if cfg.Path.Type != "transforms" {
		return fmt.Errorf("probe needs a transforms path with images, scene %q has %q", cfg.Name, cfg.Path.Type)
	}

	seed := cCtx.Uint64("seed")
	r, err := scene.NewRenderer(cfg, seed, log.Logger)
	if err != nil {
		return err
	}

	cfg.Path.GroundTruth = true
	path, err := scene.BuildPath(cfg, 0)
	if err != nil {
		return err
	}

	opts := r.Options()
	bank, err := train.NewRayBank(path.Intrinsics, path.Poses, path.GroundTruth, opts.Near, opts.Far, cCtx.Int("batch"), seed)
	if err != nil {
		return err
	}
	schedule := train.DefaultDecaySchedule()

	for step := 0; step < cCtx.Int("steps"); step++ {
		batch, targets := bank.Next()
		out, err := r.BatchifyRays(batch)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		m, err := train.Evaluate(out, targets)
		if err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		fmt.Printf("step %d epoch %d: loss %.5f psnr %.2f lr %.2e\n", step, bank.Epoch(), m.Loss, m.PSNR, schedule.At(step))
	}
	return nil
}

func infoCommand(cCtx *cli.Context) error {
	response, err := scene.ListAllScenes("")
	if err != nil {
		return err
	}
	for _, group := range response.Groups {
		fmt.Printf("%s:\n", group.Name)
		for _, s := range group.Scenes {
			id := s.ID
			if s.FilePath != "" {
				id = s.FilePath
			}
			if s.Description != "" {
				fmt.Printf("  %-28s %s - %s\n", id, s.DisplayName, s.Description)
			} else {
				fmt.Printf("  %-28s %s\n", id, s.DisplayName)
			}
		}
	}
	return nil
}
