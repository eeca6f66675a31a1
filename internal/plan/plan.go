package plan

import (
	"fmt"
	"strings"
)

// Mode selects which sidecars run locally.
type Mode string

const (
	ModeLocalFullstack Mode = "local_fullstack"
	ModeRemoteSlim     Mode = "remote_slim"
)

// Canonical sidecar names produced by Build.
const (
	SidecarMongo   = "mongo"
	SidecarBackend = "backend"
	SidecarWeb     = "web"
)

// NormalizeMode maps raw mode strings (with or without the desktop_ prefix)
// to a canonical Mode. Anything unrecognized, including the empty string,
// falls back to local_fullstack.
func NormalizeMode(raw string) Mode {
	switch strings.TrimSpace(raw) {
	case "desktop_remote_slim", "remote_slim":
		return ModeRemoteSlim
	default:
		return ModeLocalFullstack
	}
}

func (m Mode) String() string { return string(m) }

// BackendTag returns the mode string handed to the backend and web sidecars
// via APP_RUNTIME_MODE.
func (m Mode) BackendTag() string {
	if m == ModeRemoteSlim {
		return "desktop_remote_slim"
	}
	return "desktop_local_fullstack"
}

// SidecarSpec describes one child process to launch. Values are produced once
// by Build and never mutated afterward.
type SidecarSpec struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	WorkDir string            `json:"work_dir"`
	Env     map[string]string `json:"env"`
	// EnsureDirs are created (MkdirAll) right before the first spawn. Mongo
	// refuses to start when its dbpath does not exist.
	EnsureDirs []string `json:"ensure_dirs,omitempty"`
}

// Ports are the resolved local ports the plan was built with. They also
// appear inside the specs' args and env; carrying them here keeps dry-run
// output readable.
type Ports struct {
	Web     int `json:"web"`
	Backend int `json:"backend"`
	Mongo   int `json:"mongo"`
}

// Plan is the ordered list of sidecars for one runtime mode. Ordering is the
// launch order only; the supervisor does not wait for readiness between specs.
type Plan struct {
	Mode  Mode          `json:"mode"`
	Ports Ports         `json:"ports"`
	Specs []SidecarSpec `json:"specs"`
}

// Validate rejects plans with duplicate sidecar names. Build never produces
// one, but hand-assembled plans can.
func (p Plan) Validate() error {
	seen := make(map[string]struct{}, len(p.Specs))
	for _, s := range p.Specs {
		if s.Name == "" {
			return fmt.Errorf("sidecar spec with empty name")
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("duplicate sidecar name %q in plan", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// Spec returns the spec with the given name, if present.
func (p Plan) Spec(name string) (SidecarSpec, bool) {
	for _, s := range p.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return SidecarSpec{}, false
}
