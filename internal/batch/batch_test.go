package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"custom-rasterizer/internal/bake"
	"custom-rasterizer/internal/config"
	_ "custom-rasterizer/internal/kernel/soft"
	"custom-rasterizer/internal/raster"
)

const triOBJ = `v -1 -1 0
v 1 -1 0
v 0 1 0
f 1 2 3
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestJobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.obj"), triOBJ)
	writeFile(t, filepath.Join(dir, "sub", "a.OBJ"), triOBJ)
	writeFile(t, filepath.Join(dir, "readme.txt"), "x")
	single := filepath.Join(t.TempDir(), "c.stl")
	writeFile(t, single, "")

	jobs, err := Jobs([]string{dir, single})
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	want := []string{"b", "c", "sub/a"}
	if len(jobs) != len(want) {
		t.Fatalf("Jobs = %+v", jobs)
	}
	for i, j := range jobs {
		if j.Name != want[i] {
			t.Errorf("job %d = %q, want %q", i, j.Name, want[i])
		}
	}
	if jobs[2].Output() != "sub/a.webp" {
		t.Errorf("Output = %q", jobs[2].Output())
	}
}

func TestJobsErrors(t *testing.T) {
	if _, err := Jobs([]string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Error("missing path accepted")
	}

	a := filepath.Join(t.TempDir(), "x.obj")
	b := filepath.Join(t.TempDir(), "x.ply")
	writeFile(t, a, triOBJ)
	writeFile(t, b, "")
	if _, err := Jobs([]string{a, b}); err == nil {
		t.Error("duplicate job names accepted")
	}
}

func softConfig(t *testing.T, out string) Config {
	t.Helper()
	c := raster.Probe(config.Kernel{Name: "soft"})
	if !c.Available() {
		t.Fatalf("soft kernel unavailable: %v", c.Err)
	}
	return Config{
		OutputDir:    out,
		Rasterizer:   raster.New(c),
		Mode:         bake.ModeMask,
		RenderSize:   16,
		Supersample:  2,
		Workers:      3,
		SpeckleRatio: config.DefaultSpeckleRatio,
	}
}

func isWebP(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		t.Fatalf("%s is not a WebP file", path)
	}
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	for _, name := range []string{"one.obj", "two.obj", "nested/three.obj"} {
		writeFile(t, filepath.Join(in, name), triOBJ)
	}
	writeFile(t, filepath.Join(in, "broken.obj"), "# no faces\n")

	jobs, err := Jobs([]string{in})
	if err != nil {
		t.Fatal(err)
	}
	cfg := softConfig(t, out)
	cfg.FillRatio = 0.8
	results := Run(cfg, jobs)
	if len(results) != len(jobs) {
		t.Fatalf("results = %d, jobs = %d", len(results), len(jobs))
	}

	ok := 0
	for i, r := range results {
		if r.Name != jobs[i].Name {
			t.Errorf("result %d is %q, job is %q", i, r.Name, jobs[i].Name)
		}
		if r.Name == "broken" {
			if r.Success || r.Error == "" {
				t.Errorf("broken mesh result = %+v", r)
			}
			continue
		}
		if !r.Success {
			t.Errorf("%s failed: %s", r.Name, r.Error)
			continue
		}
		ok++
		if r.Fallback || r.Covered == 0 {
			t.Errorf("%s: fallback %v, covered %d", r.Name, r.Fallback, r.Covered)
		}
		isWebP(t, filepath.Join(out, filepath.FromSlash(r.Output)))
	}
	if ok != 3 {
		t.Errorf("succeeded = %d, want 3", ok)
	}

	m := NewManifest(cfg, jobs, results)
	if m.Kernel != "soft" || m.Status != raster.StatusLoaded.String() || m.Mode != "mask" {
		t.Errorf("manifest header = %q %q %q", m.Kernel, m.Status, m.Mode)
	}
	path := filepath.Join(out, "manifest.json")
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back Manifest
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if len(back.Entries) != len(jobs) {
		t.Errorf("manifest entries = %d", len(back.Entries))
	}
}

func TestRunFallback(t *testing.T) {
	in := filepath.Join(t.TempDir(), "tri.obj")
	writeFile(t, in, triOBJ)
	out := t.TempDir()

	cfg := softConfig(t, out)
	cfg.Rasterizer = raster.New(raster.Unavailable(raster.StatusDisabled, nil))
	results := Run(cfg, []Job{{Name: "tri", MeshPath: in}})

	r := results[0]
	if !r.Success || !r.Fallback || r.Covered != 0 {
		t.Errorf("fallback result = %+v", r)
	}
	isWebP(t, filepath.Join(out, "tri.webp"))
}

// lostKernel is loaded but fails every call.
type lostKernel struct{}

func (lostKernel) Name() string { return "lost" }

func (lostKernel) RasterizeImage(raster.KernelRequest) (raster.FaceImage, raster.BaryImage, error) {
	return raster.FaceImage{}, raster.BaryImage{}, errors.New("device lost")
}

func (lostKernel) Close() error { return nil }

func TestRunKernelFailureIsFallback(t *testing.T) {
	in := filepath.Join(t.TempDir(), "tri.obj")
	writeFile(t, in, triOBJ)
	out := t.TempDir()

	cfg := softConfig(t, out)
	cfg.Rasterizer = raster.New(raster.Available(lostKernel{}))
	jobs := []Job{{Name: "tri", MeshPath: in}}
	results := Run(cfg, jobs)

	r := results[0]
	if !r.Success || !r.Fallback || r.Covered != 0 {
		t.Errorf("result = %+v, want a successful fallback", r)
	}
	m := NewManifest(cfg, jobs, results)
	if m.Status != raster.StatusLoaded.String() || !m.Entries[0].Fallback {
		t.Errorf("manifest = %+v, want loaded kernel with a fallback entry", m)
	}
}

func TestRunTextureModeNeedsTexture(t *testing.T) {
	in := filepath.Join(t.TempDir(), "tri.obj")
	writeFile(t, in, triOBJ)

	cfg := softConfig(t, t.TempDir())
	cfg.Mode = bake.ModeTexture
	results := Run(cfg, []Job{{Name: "tri", MeshPath: in}})
	if results[0].Success {
		t.Error("texture mode without textures succeeded")
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run(Config{}, nil); len(got) != 0 {
		t.Errorf("Run(nil) = %v", got)
	}
}
