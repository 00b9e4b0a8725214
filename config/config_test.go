package config

import (
	"os"
	"path/filepath"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfile(t *testing.T) {
	tests := []struct {
		profile Profile
		crf     int
	}{
		{ProfileDefault, 28},
		{ProfileQuality, 23},
		{ProfileArchive, 18},
		{ProfileCompress, 32},
		{ProfileTiny, 38},
		{Profile("bogus"), 28},
	}
	for _, tc := range tests {
		cfg := GetProfile(tc.profile)
		assert.Equal(t, tc.crf, cfg.CRF, "profile %s", tc.profile)
		assert.Equal(t, DefaultCodec, cfg.Codec)
	}
}

// Every built-in profile must pass validation.
func TestAvailableProfilesValidate(t *testing.T) {
	for _, p := range AvailableProfiles() {
		cfg := GetProfile(p)
		assert.NoError(t, cfg.Validate(), "profile %s", p)
		assert.NotEmpty(t, ProfileDescription(p))
	}
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile(" Quality ")
	require.NoError(t, err)
	assert.Equal(t, ProfileQuality, p)

	_, err = ParseProfile("extreme")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestValidate_CRFRange_Property(t *testing.T) {
	f := func(crf int8) bool {
		cfg := DefaultConfig()
		cfg.CRF = int(crf)
		err := cfg.Validate()
		if crf < MinCRF || crf > MaxCRF {
			return err != nil
		}
		return err == nil
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Codec = "  "
	assert.ErrorIs(t, cfg.Validate(), ErrEmptyCodec)

	cfg = DefaultConfig()
	cfg.LogLevel = "loud"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownLogLevel)

	cfg = DefaultConfig()
	cfg.ProfileName = "nope"
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownProfile)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 28, cfg.CRF)
	assert.Equal(t, DefaultCodec, cfg.Codec)
	assert.Equal(t, DefaultOutputExt, cfg.OutputExt)
}

func TestLoad_EmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().CRF, cfg.CRF)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h265.yaml")
	data := `
profile: compress
codec: libx265
ffmpeg: /opt/ff/ffmpeg
output_ext: mkv
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProfileCompress, cfg.ProfileName)
	assert.Equal(t, 32, cfg.CRF, "profile supplies the CRF")
	assert.Equal(t, "/opt/ff/ffmpeg", cfg.FFmpeg)
	assert.Equal(t, ".mkv", cfg.OutputExt)
	assert.Equal(t, DefaultOutputSuffix, cfg.OutputSuffix)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ExplicitCRFBeatsProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h265.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profile: tiny\ncrf: 0\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProfileTiny, cfg.ProfileName)
	assert.Equal(t, 0, cfg.CRF)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h265.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crf: [1, 2\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("H265_FFMPEG", "/env/ffmpeg")
	t.Setenv("H265_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/ffmpeg", cfg.FFmpeg)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestSuggestOutput(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("videos", "clip_h265.mp4"), cfg.SuggestOutput(filepath.Join("videos", "clip.mp4")))
	assert.Equal(t, "movie_h265.mp4", cfg.SuggestOutput("movie.mkv"))
	assert.Equal(t, "raw_h265.mp4", cfg.SuggestOutput("raw"))
	assert.Equal(t, "", cfg.SuggestOutput(""))
}

func TestNormalizeOutput(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "out.mp4", cfg.NormalizeOutput("out"))
	assert.Equal(t, "out.mkv", cfg.NormalizeOutput("out.mkv"))
	assert.Equal(t, "", cfg.NormalizeOutput(""))
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "/a/b c.mp4", CleanPath(` "/a/b c.mp4" `))
	assert.Equal(t, "/a/b.mp4", CleanPath(`'/a/b.mp4'`))
	assert.Equal(t, "plain", CleanPath("plain"))
}
