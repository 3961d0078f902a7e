package scenario

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides, e.g. RDR_DISRUPTION__ALPHA.
const EnvPrefix = "RDR_"

// envSeparator separates section and key in environment variable names.
const envSeparator = "__"

// Document is a configuration file together with everything found while reading it.
type Document struct {
	Path     string
	Config   *Config
	Problems Problems

	k *koanf.Koanf
}

// Raw returns the resolved raw values keyed by section-qualified name.
func (d *Document) Raw() map[string]interface{} {
	return d.k.All()
}

type options struct {
	env bool
}

// Option configures Read and Load.
type Option func(*options)

// WithoutEnv disables RDR_<SECTION>__<KEY> environment overrides.
func WithoutEnv() Option {
	return func(o *options) { o.env = false }
}

// Read loads a configuration file and validates it against Schema.
// Configuration problems are reported on the document, not as an error;
// the error is reserved for files that cannot be read or parsed.
//
// Precedence (highest to lowest): environment > file > schema defaults.
func Read(path string, opts ...Option) (*Document, error) {
	o := options{env: true}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	k := koanf.New(".")

	// 1. Schema defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. The .config file itself
	if err := k.Load(file.Provider(abs), Parser()); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// 3. Environment overrides
	// Transform: RDR_DISRUPTION__ALPHA -> disruption.alpha
	if o.env {
		if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}

	ps := Validate(k)
	resolvePaths(k, filepath.Dir(abs))

	cfg, err := decode(k)
	if err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Path = abs

	return &Document{Path: abs, Config: cfg, Problems: ps, k: k}, nil
}

// Load reads a configuration file and fails if it has any breaking problem.
func Load(path string, opts ...Option) (*Config, error) {
	doc, err := Read(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := doc.Problems.Err(); err != nil {
		return nil, err
	}
	return doc.Config, nil
}

// envKey maps an environment variable name to a section-qualified key.
// Variables without a section separator are left to other loaders.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	section, key, found := strings.Cut(s, envSeparator)
	if !found || section == "" || key == "" {
		return ""
	}
	return strings.ToLower(section) + "." + strings.ToLower(key)
}

// resolvePaths makes relative path values absolute against the config directory.
func resolvePaths(k *koanf.Koanf, dir string) {
	for _, f := range Schema {
		if f.Kind != KindPath {
			continue
		}
		p := strings.TrimSpace(k.String(f.Name()))
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		_ = k.Set(f.Name(), filepath.Join(dir, p))
	}
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       stringToBoolHook(),
			WeaklyTypedInput: true,
			TagName:          "koanf",
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// stringToBoolHook decodes the INI boolean spellings, e.g. "yes" and "False".
func stringToBoolHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
			return data, nil
		}
		s, _ := data.(string)
		if strings.TrimSpace(s) == "" {
			return false, nil
		}
		return parseBool(s)
	}
}
