// Package config resolves the settings of one topology run.
//
// Values come from the topology file first, then from environment variables
// (optionally seeded from a .env file next to the topology), then from
// built-in defaults. Settings is built once and passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"meshtopo/internal/topology"
)

// ErrNoLinks indicates a topology document without a links list.
var ErrNoLinks = errors.New("topology has no links list")

const (
	EnvNamespace   = "MESHTOPO_NAMESPACE"
	EnvStateDir    = "MESHTOPO_STATE_DIR"
	EnvPublishBase = "MESHTOPO_PUBLISH_BASE"
	EnvSocatImage  = "MESHTOPO_SOCAT_IMAGE"

	DefaultNamespace  = "default"
	DefaultConfDir    = "config"
	DefaultSocatImage = "alpine/socat:latest"
)

// Settings is the resolved configuration of a run.
type Settings struct {
	TopologyPath string
	Prefix       string
	Namespace    string
	ConfDir      string
	StateDir     string
	SocatImage   string

	Images         map[topology.Kind]string
	CustomImages   map[string]string
	CustomKeywords []string

	Publish topology.PublishPolicy
	Startup topology.StartupPolicy

	Entries [][]string
}

// Load reads the topology at path and resolves settings around it.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	return Resolve(path, f)
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Resolve applies environment and defaults to a parsed document.
func Resolve(path string, f *File) (*Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve topology path: %w", err)
	}

	s := &Settings{
		TopologyPath: abs,
		Prefix:       coalesce(f.Prefix, fileStem(abs)),
		Namespace:    coalesce(os.Getenv(EnvNamespace), DefaultNamespace),
		StateDir:     coalesce(os.Getenv(EnvStateDir), defaultStateDir()),
		SocatImage:   coalesce(os.Getenv(EnvSocatImage), DefaultSocatImage),
		Images:       make(map[topology.Kind]string),
		CustomImages: make(map[string]string, len(f.CustomImage)),
		Entries:      f.Entries(),
	}

	confDir := coalesce(f.ConfDir, DefaultConfDir)
	if !filepath.IsAbs(confDir) {
		confDir = filepath.Join(filepath.Dir(abs), confDir)
	}
	s.ConfDir = confDir

	for _, k := range topology.Kinds() {
		spec := k.Spec()
		var fromFile string
		if k == topology.KindCEOS {
			fromFile = f.CEOSImage
		}
		s.Images[k] = coalesce(fromFile, os.Getenv(spec.ImageEnv), spec.Image)
	}

	for _, ci := range f.CustomImage {
		kw := strings.ToLower(strings.TrimSpace(ci.Keyword))
		if kw == "" || strings.TrimSpace(ci.Image) == "" {
			continue
		}
		if _, dup := s.CustomImages[kw]; dup {
			continue
		}
		s.CustomImages[kw] = ci.Image
		s.CustomKeywords = append(s.CustomKeywords, kw)
	}

	switch {
	case f.PublishBase != nil:
		s.Publish = f.PublishBase.Policy()
	case os.Getenv(EnvPublishBase) != "":
		base, err := strconv.Atoi(os.Getenv(EnvPublishBase))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPublishBase, err)
		}
		s.Publish = topology.PublishPolicy{Base: base, BaseSet: true}
	}

	s.Startup = topology.DefaultStartupPolicy()
	s.Startup.Staggered = f.Delay

	return s, nil
}

// Image returns the image reference for d.
func (s *Settings) Image(d *topology.Device) string {
	if d.Kind == topology.KindGeneric {
		return s.CustomImages[d.Keyword]
	}
	return s.Images[d.Kind]
}

// BuildOptions returns the graph construction options for these settings.
func (s *Settings) BuildOptions() topology.BuildOptions {
	return topology.BuildOptions{CustomKeywords: s.CustomKeywords}
}

// GraphPath returns where the exported graph document is written.
func (s *Settings) GraphPath() string {
	return filepath.Join(filepath.Dir(s.TopologyPath), s.Prefix+".json")
}

// StorePath returns the mesh resource database location.
func (s *Settings) StorePath() string {
	return filepath.Join(s.StateDir, "mesh.db")
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func defaultStateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".local", "state", "meshtopo")
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "meshtopo")
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
