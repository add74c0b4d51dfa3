package batch

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"

	"custom-rasterizer/internal/bake"
	"custom-rasterizer/internal/mesh"
	"custom-rasterizer/internal/postprocess"
	"custom-rasterizer/internal/raster"
	"custom-rasterizer/internal/texture"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir   string
	TexResolver texture.Resolver
	Rasterizer  *raster.Rasterizer
	Mode        bake.Mode
	Device      raster.Device
	RenderSize  int
	Supersample int
	Workers     int
	// FillRatio > 0 refits each bake to its coverage.
	FillRatio    float64
	SpeckleRatio float64
	// ProgressEvery is the progress log interval; zero means 2s.
	ProgressEvery time.Duration
}

// Job is one mesh to bake. Texture names a texture to resolve; empty
// means the mesh name is tried.
type Job struct {
	Name     string
	MeshPath string
	Texture  string
}

// Output returns the job's image path relative to the output directory.
func (j Job) Output() string {
	return j.Name + ".webp"
}

// Result holds the outcome of processing one job.
type Result struct {
	Name     string
	Output   string
	Covered  int
	Fallback bool
	Success  bool
	Error    string
}

// meshExts are the formats mesh.Load understands.
var meshExts = map[string]bool{".obj": true, ".stl": true, ".ply": true, ".3ds": true}

// Jobs expands paths into jobs. Directories are walked for mesh files;
// files are taken as given. Jobs are sorted by name and names are unique:
// nested meshes are named by their slash-separated path under the root.
func Jobs(paths []string) ([]Job, error) {
	var jobs []Job
	seen := make(map[string]string)
	add := func(name, path string) error {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("batch: %s and %s both map to %s", prev, path, name)
		}
		seen[name] = path
		jobs = append(jobs, Job{Name: name, MeshPath: path})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("batch: %w", err)
		}
		if !info.IsDir() {
			if err := add(stem(filepath.Base(root)), root); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if !meshExts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return add(stem(filepath.ToSlash(rel)), path)
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].Name < jobs[k].Name })
	return jobs, nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Run processes all jobs using a worker pool.
func Run(cfg Config, jobs []Job) []Result {
	log := raster.Logger().With("component", "batch")
	total := len(jobs)
	results := make([]Result, total)
	if total == 0 {
		return results
	}
	workers := max(1, min(cfg.Workers, total))
	every := cfg.ProgressEvery
	if every <= 0 {
		every = 2 * time.Second
	}

	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					log.Info("progress", "done", p, "total", total, "per_sec", fmt.Sprintf("%.1f", rate))
				}
			}
		}
	}()

	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(cfg, jobs[idx], log)
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processJob(cfg Config, job Job, log *slog.Logger) Result {
	res := Result{Name: job.Name, Output: job.Output()}
	fail := func(err error) Result {
		log.Warn("bake failed", "job", job.Name, "err", err)
		res.Error = err.Error()
		return res
	}

	m, err := mesh.Load(job.MeshPath)
	if err != nil {
		return fail(err)
	}

	var tex *image.NRGBA
	if cfg.TexResolver != nil {
		name := job.Texture
		if name == "" {
			name = m.Name
		}
		tex = cfg.TexResolver.Resolve(name)
	}
	if cfg.Mode == bake.ModeTexture && tex == nil {
		return fail(fmt.Errorf("no texture for %s", job.Name))
	}

	img, stats, err := bake.Render(m, bake.Options{
		Size:        cfg.RenderSize,
		Supersample: cfg.Supersample,
		Mode:        cfg.Mode,
		Device:      cfg.Device,
		Texture:     tex,
		Rasterizer:  cfg.Rasterizer,
	})
	if err != nil {
		return fail(err)
	}
	res.Covered = stats.Covered
	res.Fallback = stats.Fallback

	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.RenderSize)
	}
	img = postprocess.RemoveSpeckles(img, cfg.SpeckleRatio)
	if cfg.FillRatio > 0 {
		img = postprocess.Fit(img, cfg.RenderSize, cfg.FillRatio)
	}

	if err := writeWebP(filepath.Join(cfg.OutputDir, filepath.FromSlash(res.Output)), img); err != nil {
		return fail(err)
	}
	log.Debug("baked", "job", job.Name, "faces", stats.Faces, "covered", stats.Covered)
	res.Success = true
	return res
}

func writeWebP(path string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	if err := nativewebp.Encode(f, img, nil); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return nil
}
