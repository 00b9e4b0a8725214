package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile represents a named quality profile
type Profile string

const (
	ProfileDefault  Profile = "default"  // Balanced quality/size (CRF 28)
	ProfileQuality  Profile = "quality"  // Visually transparent for most content (CRF 23)
	ProfileArchive  Profile = "archive"  // Near lossless, large files (CRF 18)
	ProfileCompress Profile = "compress" // Smaller files, visible softening (CRF 32)
	ProfileTiny     Profile = "tiny"     // Share-by-chat sizes (CRF 38)
)

// CRF bounds accepted by libx265.
const (
	MinCRF = 0
	MaxCRF = 51
)

const (
	DefaultCodec        = "libx265"
	DefaultOutputSuffix = "_h265"
	DefaultOutputExt    = ".mp4"
	DefaultLogLevel     = "info"
)

var (
	ErrUnknownProfile  = errors.New("unknown profile")
	ErrCRFOutOfRange   = fmt.Errorf("crf must be between %d and %d", MinCRF, MaxCRF)
	ErrEmptyCodec      = errors.New("codec must not be empty")
	ErrUnknownLogLevel = errors.New("unknown log level")
)

// AvailableProfiles returns all available profile names
func AvailableProfiles() []Profile {
	return []Profile{ProfileDefault, ProfileQuality, ProfileArchive, ProfileCompress, ProfileTiny}
}

// ParseProfile returns the profile named s (case-insensitive).
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AvailableProfiles() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// Config holds the encoder and tool settings
type Config struct {
	// Profile name for display purposes
	ProfileName Profile
	// CRF is the Constant Rate Factor (0-51, lower = better quality, larger file)
	CRF int
	// Codec is the ffmpeg encoder passed to -vcodec
	Codec string

	// FFmpeg and FFprobe are explicit tool paths. Empty means resolve at startup.
	FFmpeg  string
	FFprobe string
	// BundleDir overrides the directory searched for bundled tools.
	BundleDir string

	// OutputSuffix and OutputExt shape the suggested output path.
	OutputSuffix string
	OutputExt    string

	LogFile  string
	LogLevel string
}

// DefaultConfig returns the balanced profile with stock settings
func DefaultConfig() Config {
	return GetProfile(ProfileDefault)
}

// GetProfile returns the configuration for a specific profile
func GetProfile(profile Profile) Config {
	base := Config{
		ProfileName:  profile,
		Codec:        DefaultCodec,
		OutputSuffix: DefaultOutputSuffix,
		OutputExt:    DefaultOutputExt,
		LogLevel:     DefaultLogLevel,
	}
	base.CRF = profileCRF(profile)
	return base
}

func profileCRF(profile Profile) int {
	switch profile {
	case ProfileQuality:
		return 23
	case ProfileArchive:
		return 18
	case ProfileCompress:
		return 32
	case ProfileTiny:
		return 38
	default:
		return 28
	}
}

// ProfileDescription returns a human-readable description of a profile
func ProfileDescription(profile Profile) string {
	switch profile {
	case ProfileQuality:
		return "High quality (CRF 23) - Transparent for most sources"
	case ProfileArchive:
		return "Archive (CRF 18) - Near lossless, large files"
	case ProfileCompress:
		return "Compress (CRF 32) - Noticeably smaller, some softening"
	case ProfileTiny:
		return "Tiny (CRF 38) - Smallest files, visible artifacts"
	default:
		return "Default balanced (CRF 28) - x265's own default trade-off"
	}
}

// fileConfig is the on-disk shape. CRF is a pointer so a profile named in
// the file can supply it when the file does not.
type fileConfig struct {
	Profile      Profile `yaml:"profile"`
	CRF          *int    `yaml:"crf"`
	Codec        string  `yaml:"codec"`
	FFmpeg       string  `yaml:"ffmpeg"`
	FFprobe      string  `yaml:"ffprobe"`
	BundleDir    string  `yaml:"bundle_dir"`
	OutputSuffix string  `yaml:"output_suffix"`
	OutputExt    string  `yaml:"output_ext"`
	LogFile      string  `yaml:"log_file"`
	LogLevel     string  `yaml:"log_level"`
}

// Load reads a YAML config file. A missing file yields the defaults.
// Environment overrides are applied after the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
			cfg = fc.apply(cfg)
		case !os.IsNotExist(err):
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	fillDefaults(&cfg)
	return cfg, nil
}

func (fc fileConfig) apply(cfg Config) Config {
	if fc.Profile != "" {
		cfg.ProfileName = Profile(strings.ToLower(string(fc.Profile)))
		cfg.CRF = profileCRF(cfg.ProfileName)
	}
	if fc.CRF != nil {
		cfg.CRF = *fc.CRF
	}
	cfg.Codec = fc.Codec
	cfg.FFmpeg = fc.FFmpeg
	cfg.FFprobe = fc.FFprobe
	cfg.BundleDir = fc.BundleDir
	cfg.OutputSuffix = fc.OutputSuffix
	cfg.OutputExt = fc.OutputExt
	cfg.LogFile = fc.LogFile
	cfg.LogLevel = fc.LogLevel
	return cfg
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"H265_FFMPEG", &cfg.FFmpeg},
		{"H265_FFPROBE", &cfg.FFprobe},
		{"H265_BUNDLE_DIR", &cfg.BundleDir},
		{"H265_LOG_FILE", &cfg.LogFile},
		{"H265_LOG_LEVEL", &cfg.LogLevel},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.dst = v
		}
	}
}

func fillDefaults(cfg *Config) {
	if cfg.ProfileName == "" {
		cfg.ProfileName = ProfileDefault
	}
	if cfg.Codec == "" {
		cfg.Codec = DefaultCodec
	}
	if cfg.OutputSuffix == "" {
		cfg.OutputSuffix = DefaultOutputSuffix
	}
	if cfg.OutputExt == "" {
		cfg.OutputExt = DefaultOutputExt
	}
	if !strings.HasPrefix(cfg.OutputExt, ".") {
		cfg.OutputExt = "." + cfg.OutputExt
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	if _, err := ParseProfile(string(c.ProfileName)); err != nil {
		return err
	}
	if c.CRF < MinCRF || c.CRF > MaxCRF {
		return fmt.Errorf("%w (got %d)", ErrCRFOutOfRange, c.CRF)
	}
	if strings.TrimSpace(c.Codec) == "" {
		return ErrEmptyCodec
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, c.LogLevel)
	}
	return nil
}

// SuggestOutput derives an output path beside input: <stem><suffix><ext>.
func (c Config) SuggestOutput(input string) string {
	if input == "" {
		return ""
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	outExt := c.OutputExt
	if outExt == "" {
		outExt = ext
	}
	return base + c.OutputSuffix + outExt
}

// NormalizeOutput appends the configured extension when path has none.
func (c Config) NormalizeOutput(path string) string {
	if path == "" || filepath.Ext(path) != "" {
		return path
	}
	return path + c.OutputExt
}

// CleanPath strips whitespace and the quotes a shell or file manager drag
// leaves around a path.
func CleanPath(path string) string {
	return strings.Trim(strings.TrimSpace(path), "\"'")
}
