package plan

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Default local ports when neither flags, environment, nor the runtime
// profile supply them.
const (
	DefaultWebPort     = 3000
	DefaultBackendPort = 8080
	DefaultMongoPort   = 27017
)

const (
	backendEntryScript = "scripts/run_backend.py"
	mongoDataSubdir    = "mongo"
	defaultPythonBin   = "python3"
)

// Config is the fully resolved input to Build. All precedence between flags,
// environment, and the runtime profile has already been applied.
type Config struct {
	Mode          Mode
	WorkspaceRoot string
	WebPort       int
	BackendPort   int
	MongoPort     int
	BackendURL    string
	ProfilePath   string
	SessionID     string
	WebDev        bool
	MongoBin      string
	PythonBin     string
	DataDir       string
}

// Build maps a resolved configuration to a launch plan. It is pure and
// deterministic: no I/O, no clock, no randomness. Optional sidecars (mongo,
// backend) are omitted per mode and per presence of the mongod binary; the
// web spec is always present and always last.
func Build(cfg Config) Plan {
	mode := NormalizeMode(string(cfg.Mode))
	webPort := portOr(cfg.WebPort, DefaultWebPort)
	backendPort := portOr(cfg.BackendPort, DefaultBackendPort)
	mongoPort := portOr(cfg.MongoPort, DefaultMongoPort)
	profilePath := strings.TrimSpace(cfg.ProfilePath)
	root := strings.TrimSpace(cfg.WorkspaceRoot)

	specs := make([]SidecarSpec, 0, 3)

	if mode == ModeLocalFullstack {
		if bin := strings.TrimSpace(cfg.MongoBin); bin != "" {
			specs = append(specs, mongoSpec(bin, mongoPort, strings.TrimSpace(cfg.DataDir), root))
		}
		specs = append(specs, backendSpec(cfg, mode, backendPort, mongoPort, profilePath, root))
	}
	specs = append(specs, webSpec(cfg, mode, webPort, profilePath, root))

	return Plan{
		Mode:  mode,
		Ports: Ports{Web: webPort, Backend: backendPort, Mongo: mongoPort},
		Specs: specs,
	}
}

func mongoSpec(bin string, port int, dataDir, root string) SidecarSpec {
	args := []string{"--port", strconv.Itoa(port)}
	var ensure []string
	if dataDir != "" {
		dbPath := filepath.Join(dataDir, mongoDataSubdir)
		args = append(args, "--dbpath", dbPath)
		ensure = []string{dbPath}
	}
	return SidecarSpec{
		Name:       SidecarMongo,
		Command:    bin,
		Args:       args,
		WorkDir:    root,
		Env:        map[string]string{},
		EnsureDirs: ensure,
	}
}

func backendSpec(cfg Config, mode Mode, backendPort, mongoPort int, profilePath, root string) SidecarSpec {
	python := strings.TrimSpace(cfg.PythonBin)
	if python == "" {
		python = defaultPythonBin
	}
	env := map[string]string{
		"APP_RUNTIME_MODE":   mode.BackendTag(),
		"APP_BACKEND_ORIGIN": "local",
		"DESKTOP_SESSION_ID": cfg.SessionID,
		"MONGODB_URI":        "mongodb://127.0.0.1:" + strconv.Itoa(mongoPort),
	}
	if profilePath != "" {
		env["RUNTIME_PROFILE_PATH"] = profilePath
	}
	return SidecarSpec{
		Name:    SidecarBackend,
		Command: python,
		Args: []string{
			backendEntryScript,
			"--host", "127.0.0.1",
			"--port", strconv.Itoa(backendPort),
			"--runtime-mode", mode.BackendTag(),
		},
		WorkDir: filepath.Join(root, "backend"),
		Env:     env,
	}
}

func webSpec(cfg Config, mode Mode, webPort int, profilePath, root string) SidecarSpec {
	env := map[string]string{
		"PORT":               strconv.Itoa(webPort),
		"BACKEND_BASE_URL":   cfg.BackendURL,
		"APP_RUNTIME_MODE":   mode.BackendTag(),
		"DESKTOP_SESSION_ID": cfg.SessionID,
	}
	if profilePath != "" {
		env["RUNTIME_PROFILE_PATH"] = profilePath
	}
	var args []string
	if cfg.WebDev {
		args = []string{"run", "dev"}
	} else {
		args = []string{"run", "start:standalone"}
		if profilePath != "" {
			// The standalone server re-reads the profile itself, so the path
			// travels as a trailing CLI argument rather than only via env.
			args = append(args, "--", "--runtime-profile", profilePath)
		}
	}
	return SidecarSpec{
		Name:    SidecarWeb,
		Command: npmBin(),
		Args:    args,
		WorkDir: filepath.Join(root, "web"),
		Env:     env,
	}
}

func npmBin() string {
	if runtime.GOOS == "windows" {
		return "npm.cmd"
	}
	return "npm"
}

func portOr(v, def int) int {
	if v <= 0 || v > 65535 {
		return def
	}
	return v
}
