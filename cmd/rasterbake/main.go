// Command rasterbake bakes meshes to WebP images through the custom
// rasterizer, falling back to empty images when no kernel is available.
//
//	rasterbake [flags] mesh-or-dir...
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"custom-rasterizer/internal/bake"
	"custom-rasterizer/internal/batch"
	"custom-rasterizer/internal/config"
	_ "custom-rasterizer/internal/kernel/native"
	_ "custom-rasterizer/internal/kernel/soft"
	"custom-rasterizer/internal/raster"
	"custom-rasterizer/internal/texture"
)

func main() {
	os.Exit(run())
}

func run() int {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	mode := flag.String("mode", "", "Bake mode: mask, normal, position, uv, color, texture, shaded (default: normal)")
	size := flag.Int("size", 0, "Output image size in pixels (default: 512)")
	supersample := flag.Int("supersample", 0, "Supersampling factor (default: 2)")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	outputDir := flag.String("output", "", "Output directory (default: renders)")
	textureDir := flag.String("texture", "", "Directory searched for textures by mesh name")
	kernel := flag.String("kernel", "", "Rasterizer kernel (default: native)")
	library := flag.String("lib", "", "Shared library for the native kernel")
	disable := flag.Bool("disable", false, "Force the fallback rasterizer")
	fill := flag.Float64("fill", 0, "Refit each bake to this fraction of the canvas (default: off)")
	speckle := flag.Float64("speckle", 0, "Clear pixel groups below this coverage fraction; negative disables (default: 0.02)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] mesh-or-dir...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	raster.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return 1
		}
	}

	cfg.Resolve(config.Flags{
		Disable:       *disable,
		Kernel:        *kernel,
		KernelLibrary: *library,
		OutputDir:     *outputDir,
		TextureDir:    *textureDir,
		Mode:          *mode,
		Size:          *size,
		Supersample:   *supersample,
		Workers:       *workers,
		FillRatio:     *fill,
		SpeckleRatio:  *speckle,
	})

	bakeMode, err := bake.ParseMode(cfg.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	jobs, err := batch.Jobs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(jobs) == 0 {
		fmt.Println("No meshes to bake.")
		return 0
	}

	capability := raster.Init(cfg.KernelConfig())
	kernelName := "fallback"
	if capability.Available() {
		kernelName = capability.Kernel.Name()
		defer capability.Kernel.Close()
	}

	// Build texture index
	var resolver texture.Resolver
	if cfg.TextureDir != "" {
		texIndex := texture.BuildIndex(cfg.TextureDir)
		resolver = texture.NewCache(texIndex)
		fmt.Printf("Textures: %d indexed\n", texIndex.Len())
	}

	fmt.Printf("Mesh bake → WebP (%s, kernel: %s)\n", bakeMode, kernelName)
	fmt.Println(runLine(len(jobs), cfg.Workers, cfg.RenderSize, cfg.Supersample))
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	batchCfg := batch.Config{
		OutputDir:    cfg.OutputDir,
		TexResolver:  resolver,
		Rasterizer:   raster.New(capability),
		Mode:         bakeMode,
		Device:       raster.Device(cfg.Device),
		RenderSize:   cfg.RenderSize,
		Supersample:  cfg.Supersample,
		Workers:      cfg.Workers,
		FillRatio:    cfg.FillRatio,
		SpeckleRatio: cfg.SpeckleRatio,
	}

	results := batch.Run(batchCfg, jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	var failed []batch.Result
	success, fallback := 0, 0
	for _, r := range results {
		switch {
		case !r.Success:
			failed = append(failed, r)
		case r.Fallback:
			fallback++
			success++
		default:
			success++
		}
	}

	fmt.Printf("Baked: %d/%d\n", success, len(jobs))
	if fallback > 0 {
		fmt.Printf("Fallback (empty) images: %d\n", fallback)
	}

	if len(failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failed))
		for _, e := range failed[:min(20, len(failed))] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	manifest := batch.NewManifest(batchCfg, jobs, results)
	if err := batch.WriteManifest(manifestPath, manifest); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failed) > 0 {
		return 1
	}
	return 0
}

// runLine describes the batch about to run.
func runLine(meshes, workers, size, supersample int) string {
	return fmt.Sprintf("Meshes: %d, Workers: %d, Size: %dpx (supersample x%d)", meshes, workers, size, supersample)
}
