package raster

import (
	"errors"
	"sync"

	"custom-rasterizer/internal/config"
)

// Status is the terminal outcome of probing for a kernel.
type Status int

const (
	// StatusUnprobed is the zero value; Probe never returns it.
	StatusUnprobed Status = iota
	// StatusLoaded means a kernel is open and will serve calls.
	StatusLoaded
	// StatusDisabled means configuration forced the fallback path.
	StatusDisabled
	// StatusMissing means no kernel could be found.
	StatusMissing
	// StatusFailed means a kernel was found but failed to load.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusDisabled:
		return "disabled"
	case StatusMissing:
		return "missing"
	case StatusFailed:
		return "failed"
	default:
		return "unprobed"
	}
}

// Capability is either Available (Kernel set) or Unavailable (Kernel nil,
// Status and Err explain why).
type Capability struct {
	Status Status
	Kernel Kernel
	Err    error
}

// Available reports whether calls can be delegated to Kernel.
func (c Capability) Available() bool {
	return c.Status == StatusLoaded && c.Kernel != nil
}

// Unavailable returns a capability that always takes the fallback path.
func Unavailable(status Status, err error) Capability {
	return Capability{Status: status, Err: err}
}

// Available wraps an already opened kernel.
func Available(k Kernel) Capability {
	return Capability{Status: StatusLoaded, Kernel: k}
}

// Probe resolves a capability from cfg. It never fails: every problem is
// recorded in the returned Capability and logged.
func Probe(cfg config.Kernel) Capability {
	log := Logger()
	if cfg.Disabled {
		log.Info("custom rasterizer disabled by safety mode", "env", config.EnvDisable)
		return Unavailable(StatusDisabled, nil)
	}
	if cfg.Name == "" {
		cfg.Name = config.DefaultKernel
	}

	open, ok := lookupKernel(cfg.Name)
	if !ok {
		err := errors.Join(ErrKernelNotFound, errors.New("raster: no kernel registered as "+cfg.Name))
		log.Warn("custom rasterizer not available", "kernel", cfg.Name, "err", err)
		return Unavailable(StatusMissing, err)
	}

	k, err := openKernel(open, cfg)
	switch {
	case err == nil:
		propagateLogger(k, log)
		log.Info("custom rasterizer loaded", "kernel", k.Name())
		return Available(k)
	case errors.Is(err, ErrKernelNotFound):
		log.Warn("custom rasterizer not available", "kernel", cfg.Name, "err", err)
		return Unavailable(StatusMissing, err)
	default:
		log.Error("custom rasterizer failed to load", "kernel", cfg.Name, "err", err)
		return Unavailable(StatusFailed, err)
	}
}

// Process-wide capability, resolved at most once.
var (
	defaultMu       sync.Mutex
	defaultResolved bool
	defaultCap      Capability
)

// Init resolves the process-wide capability from cfg unless it has
// already been resolved, and returns it. Binaries call Init once at
// startup with their configuration; later calls are no-ops.
func Init(cfg config.Kernel) Capability {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if !defaultResolved {
		defaultCap = Probe(cfg)
		defaultResolved = true
	}
	return defaultCap
}

// Default returns the process-wide capability, probing from the
// environment on first use.
func Default() Capability {
	defaultMu.Lock()
	resolved, c := defaultResolved, defaultCap
	defaultMu.Unlock()
	if resolved {
		return c
	}
	return Init(config.KernelFromEnv())
}
