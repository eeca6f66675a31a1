package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/project-qa/pqa-runtime/internal/plan"
)

// Environment variables consumed by the launcher. Flags override these;
// these override the runtime profile file.
const (
	EnvProfilePath = "RUNTIME_PROFILE_PATH"
	EnvRuntimeMode = "APP_RUNTIME_MODE"
	EnvWebPort     = "WEB_PORT"
	EnvBackendPort = "BACKEND_PORT"
	EnvMongoPort   = "MONGO_PORT"
	EnvSessionID   = "DESKTOP_SESSION_ID"
	EnvDataDir     = "APP_DATA_DIR"
	EnvBackendURL  = "BACKEND_BASE_URL"
	EnvMongoBin    = "MONGOD_BIN"
	EnvPythonBin   = "PYTHON_BIN"
	EnvWorkspace   = "PQA_WORKSPACE_ROOT"
)

// Profile mirrors the runtime profile JSON shared with the backend and web
// sidecars. Every field is optional.
type Profile struct {
	Mode       string     `mapstructure:"mode"`
	BackendURL string     `mapstructure:"backend_url"`
	LocalPorts LocalPorts `mapstructure:"local_ports"`
	DataDir    string     `mapstructure:"data_dir"`
}

type LocalPorts struct {
	Web     int `mapstructure:"web"`
	Backend int `mapstructure:"backend"`
	Mongo   int `mapstructure:"mongo"`
}

// LoadProfile reads the runtime profile JSON at path. A missing file,
// malformed JSON, or a non-object top level all yield an empty profile;
// profile problems are never fatal.
func LoadProfile(path string) Profile {
	path = strings.TrimSpace(path)
	if path == "" {
		return Profile{}
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Profile{}
	}
	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}
	}
	return p
}

// Options carries CLI flag values. Zero values mean "not set" so the
// environment and profile layers below can fill them in.
type Options struct {
	ProfilePath string
	Mode        string
	MongoBin    string
	PythonBin   string
	WebDev      bool
}

// Resolve assembles the launch configuration with precedence
// flag > environment > profile > built-in default.
func Resolve(opts Options) plan.Config {
	profilePath := firstNonEmpty(opts.ProfilePath, os.Getenv(EnvProfilePath))
	profile := LoadProfile(profilePath)

	mode := plan.NormalizeMode(firstNonEmpty(opts.Mode, os.Getenv(EnvRuntimeMode), profile.Mode))

	webPort := resolvePort(EnvWebPort, profile.LocalPorts.Web, plan.DefaultWebPort)
	backendPort := resolvePort(EnvBackendPort, profile.LocalPorts.Backend, plan.DefaultBackendPort)
	mongoPort := resolvePort(EnvMongoPort, profile.LocalPorts.Mongo, plan.DefaultMongoPort)

	backendURL := "http://127.0.0.1:" + strconv.Itoa(backendPort)
	if mode == plan.ModeRemoteSlim {
		backendURL = firstNonEmpty(os.Getenv(EnvBackendURL), profile.BackendURL, backendURL)
	}

	dataDir := firstNonEmpty(os.Getenv(EnvDataDir), profile.DataDir)
	if dataDir != "" {
		dataDir = ExpandTilde(dataDir)
	}

	sessionID := strings.TrimSpace(os.Getenv(EnvSessionID))
	if sessionID == "" {
		sessionID = DefaultSessionID(time.Now())
	}

	return plan.Config{
		Mode:          mode,
		WorkspaceRoot: WorkspaceRoot(),
		WebPort:       webPort,
		BackendPort:   backendPort,
		MongoPort:     mongoPort,
		BackendURL:    backendURL,
		ProfilePath:   strings.TrimSpace(profilePath),
		SessionID:     sessionID,
		WebDev:        opts.WebDev,
		MongoBin:      firstNonEmpty(opts.MongoBin, os.Getenv(EnvMongoBin)),
		PythonBin:     firstNonEmpty(opts.PythonBin, os.Getenv(EnvPythonBin), "python3"),
		DataDir:       dataDir,
	}
}

// DefaultSessionID derives a session identifier from the launch timestamp.
func DefaultSessionID(now time.Time) string {
	return fmt.Sprintf("desktop-%d", now.UnixMilli())
}

// WorkspaceRoot returns the repository root holding the web/ and backend/
// directories: the override env var when set, the working directory otherwise.
func WorkspaceRoot() string {
	if raw := strings.TrimSpace(os.Getenv(EnvWorkspace)); raw != "" {
		return raw
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// ValidateWorkspace checks that the directories the plan points sidecars at
// actually exist. The backend directory is only required when a local
// backend will run.
func ValidateWorkspace(root string, mode plan.Mode) error {
	webDir := filepath.Join(root, "web")
	if fi, err := os.Stat(webDir); err != nil || !fi.IsDir() {
		return fmt.Errorf("workspace root not valid: missing web directory at %s", webDir)
	}
	if mode == plan.ModeLocalFullstack {
		backendDir := filepath.Join(root, "backend")
		if fi, err := os.Stat(backendDir); err != nil || !fi.IsDir() {
			return fmt.Errorf("workspace root not valid: missing backend directory at %s", backendDir)
		}
	}
	return nil
}

// ExpandTilde resolves a leading ~ or ~/ against the user's home directory.
func ExpandTilde(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func resolvePort(envKey string, profileVal, def int) int {
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 65535 {
			return n
		}
	}
	if profileVal > 0 && profileVal <= 65535 {
		return profileVal
	}
	return def
}
