// Command rasterprobe reports whether a custom rasterizer kernel loads.
// It exits 0 when a kernel is available and 2 when rasterization would
// fall back to empty output.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"custom-rasterizer/internal/config"
	_ "custom-rasterizer/internal/kernel/native"
	_ "custom-rasterizer/internal/kernel/soft"
	"custom-rasterizer/internal/raster"
)

func main() {
	os.Exit(run())
}

func run() int {
	kernel := flag.String("kernel", "", "Kernel to probe (default: $"+config.EnvKernel+" or native)")
	library := flag.String("lib", "", "Shared library for the native kernel")
	check := flag.Bool("check", false, "Rasterize a test triangle through the kernel")
	verbose := flag.Bool("v", false, "Log probe details to stderr")
	flag.Parse()

	if *verbose {
		raster.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := config.KernelFromEnv()
	if *kernel != "" {
		cfg.Name = *kernel
	}
	if *library != "" {
		cfg.Library = *library
	}

	c := raster.Probe(cfg)
	fmt.Printf("Kernels: %s\n", strings.Join(raster.Kernels(), ", "))
	fmt.Printf("Status:  %s\n", c.Status)
	if c.Available() {
		defer c.Kernel.Close()
		fmt.Printf("Kernel:  %s\n", c.Kernel.Name())
	}
	if c.Err != nil {
		fmt.Printf("Error:   %v\n", c.Err)
	}
	if !c.Available() {
		return 2
	}

	if *check {
		out := checkTriangle(raster.New(c))
		covered := out.Faces.Covered()
		fmt.Printf("Check:   %d/%d pixels covered\n", covered, checkSize*checkSize)
		if out.Fallback || covered == 0 {
			return 2
		}
	}
	return 0
}

const checkSize = 16

// checkTriangle rasterizes a triangle covering the lower-left half of the
// viewport.
func checkTriangle(r *raster.Rasterizer) raster.Result {
	pos := raster.NewPositions([]float32{
		-1, -1, 0.5, 1,
		1, -1, 0.5, 1,
		-1, 1, 0.5, 1,
	}, 4, raster.CPU)
	tri := raster.NewTriangles([]int32{0, 1, 2}, raster.CPU)
	return r.Run(pos, tri, raster.Resolution{Height: checkSize, Width: checkSize})
}
