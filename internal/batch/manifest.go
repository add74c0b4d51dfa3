package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one baked mesh in the output manifest.
type ManifestEntry struct {
	Name     string `json:"name"`
	Mesh     string `json:"mesh"`
	Image    string `json:"image,omitempty"`
	Covered  int    `json:"covered"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error,omitempty"`
}

// Manifest is written as manifest.json next to the images.
type Manifest struct {
	Kernel  string          `json:"kernel"`
	Status  string          `json:"status"`
	Mode    string          `json:"mode"`
	Size    int             `json:"size"`
	Entries []ManifestEntry `json:"entries"`
}

// NewManifest pairs jobs with their results. Run returns results in job
// order, so the two slices line up index by index.
func NewManifest(cfg Config, jobs []Job, results []Result) Manifest {
	m := Manifest{
		Mode:    string(cfg.Mode),
		Size:    cfg.RenderSize,
		Entries: make([]ManifestEntry, len(jobs)),
	}
	if cfg.Rasterizer != nil {
		c := cfg.Rasterizer.Capability()
		m.Status = c.Status.String()
		if c.Kernel != nil {
			m.Kernel = c.Kernel.Name()
		}
	}
	for i, j := range jobs {
		e := ManifestEntry{Name: j.Name, Mesh: j.MeshPath}
		if i < len(results) {
			r := results[i]
			e.Covered, e.Fallback, e.Error = r.Covered, r.Fallback, r.Error
			if r.Success {
				e.Image = r.Output
			}
		}
		m.Entries[i] = e
	}
	return m
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
