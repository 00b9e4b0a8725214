package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

type member struct {
	name string
	body string
	dir  bool
}

func zipArchive(t *testing.T, members []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		name := m.name
		if m.dir {
			name += "/"
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		if !m.dir {
			_, err = w.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func tarArchive(t *testing.T, members []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o755, Size: int64(len(m.body)), Typeflag: tar.TypeReg}
		if m.dir {
			hdr = &tar.Header{Name: m.name + "/", Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !m.dir {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func xzTar(t *testing.T, members []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write(tarArchive(t, members))
	require.NoError(t, err)
	require.NoError(t, xw.Close())
	return buf.Bytes()
}

func gzTar(t *testing.T, members []member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(tarArchive(t, members))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func quietInstaller(dest string) *Installer {
	i := NewInstaller(dest, nil)
	i.Progress = nil
	return i
}

func assertExecutable(t *testing.T, p, body string) {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"Windows", "windows", "macOS", "MACOS", " linux "} {
		_, err := Lookup(name)
		assert.NoError(t, err, name)
	}

	win, err := Lookup("Windows")
	require.NoError(t, err)
	assert.Equal(t, "windows", win.Dir)
	assert.Equal(t, []string{"ffmpeg.exe", "ffprobe.exe"}, win.Binaries)

	mac, err := Lookup("macOS")
	require.NoError(t, err)
	assert.Equal(t, "macos", mac.Dir)
	assert.Equal(t, []string{
		"https://evermeet.cx/ffmpeg/getrelease/ffmpeg/zip",
		"https://evermeet.cx/ffmpeg/getrelease/ffprobe/zip",
	}, mac.URLs)

	for _, name := range TargetNames() {
		tgt, _ := Lookup(name)
		assert.NotEmpty(t, tgt.URLs, name)
	}

	_, err = Lookup("BeOS")
	assert.ErrorIs(t, err, ErrUnknownTarget)

	assert.Equal(t, []string{"Linux", "Windows", "macOS"}, TargetNames())
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"zip", []byte("PK\x03\x04rest"), KindZip},
		{"xz", []byte{0xFD, '7', 'z', 'X', 'Z', 0x00, 0x00}, KindTarXz},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, KindTarGz},
	}
	for _, tt := range tests {
		got, err := Sniff(tt.header)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := Sniff([]byte("<html>"))
	assert.ErrorIs(t, err, ErrUnknownArchive)
	_, err = Sniff(nil)
	assert.ErrorIs(t, err, ErrUnknownArchive)
}

func TestInstall_Zip(t *testing.T) {
	archive := writeTemp(t, zipArchive(t, []member{
		{name: "ffmpeg-7.1-essentials_build", dir: true},
		{name: "ffmpeg-7.1-essentials_build/README.txt", body: "readme"},
		{name: "ffmpeg-7.1-essentials_build/bin/ffmpeg.exe", body: "ffmpeg-win"},
		{name: "ffmpeg-7.1-essentials_build/bin/ffprobe.exe", body: "ffprobe-win"},
		{name: "ffmpeg-7.1-essentials_build/bin/ffplay.exe", body: "ffplay-win"},
	}))

	dest := t.TempDir()
	win, _ := Lookup("windows")
	paths, err := quietInstaller(dest).Install(context.Background(), win, archive)
	require.NoError(t, err)

	dir := filepath.Join(dest, "windows")
	assert.Equal(t, []string{filepath.Join(dir, "ffmpeg.exe"), filepath.Join(dir, "ffprobe.exe")}, paths)
	assertExecutable(t, paths[0], "ffmpeg-win")
	assertExecutable(t, paths[1], "ffprobe-win")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestInstall_TarXz(t *testing.T) {
	archive := writeTemp(t, xzTar(t, []member{
		{name: "ffmpeg-6.1-amd64-static", dir: true},
		{name: "ffmpeg-6.1-amd64-static/ffmpeg", body: "ffmpeg-linux"},
		{name: "ffmpeg-6.1-amd64-static/ffprobe", body: "ffprobe-linux"},
		{name: "ffmpeg-6.1-amd64-static/manpages/ffmpeg.txt", body: "man"},
	}))

	dest := t.TempDir()
	linux, _ := Lookup("linux")
	paths, err := quietInstaller(dest).Install(context.Background(), linux, archive)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assertExecutable(t, filepath.Join(dest, "linux", "ffmpeg"), "ffmpeg-linux")
	assertExecutable(t, filepath.Join(dest, "linux", "ffprobe"), "ffprobe-linux")
}

func TestInstall_TarGz(t *testing.T) {
	archive := writeTemp(t, gzTar(t, []member{
		{name: "ffmpeg", body: "a"},
		{name: "ffprobe", body: "b"},
	}))

	dest := t.TempDir()
	linux, _ := Lookup("linux")
	_, err := quietInstaller(dest).Install(context.Background(), linux, archive)
	require.NoError(t, err)
	assertExecutable(t, filepath.Join(dest, "linux", "ffprobe"), "b")
}

func TestInstall_MissingBinaries(t *testing.T) {
	archive := writeTemp(t, zipArchive(t, []member{{name: "ffmpeg", body: "only one"}}))

	mac, _ := Lookup("macos")
	_, err := quietInstaller(t.TempDir()).Install(context.Background(), mac, archive)
	assert.ErrorIs(t, err, ErrMissingBinaries)
	assert.Contains(t, err.Error(), "ffprobe")
}

func TestInstall_UnknownArchive(t *testing.T) {
	archive := writeTemp(t, []byte("<html>not found</html>"))

	mac, _ := Lookup("macos")
	_, err := quietInstaller(t.TempDir()).Install(context.Background(), mac, archive)
	assert.ErrorIs(t, err, ErrUnknownArchive)
}

func TestInstall_FromDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "ffmpeg"), []byte("m"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ffprobe"), []byte("p"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ffplay"), []byte("x"), 0o644))

	dest := t.TempDir()
	mac, _ := Lookup("macos")
	paths, err := quietInstaller(dest).Install(context.Background(), mac, src)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	assertExecutable(t, filepath.Join(dest, "macos", "ffmpeg"), "m")
	assert.NoFileExists(t, filepath.Join(dest, "macos", "ffplay"))
}

func TestInstall_FromDestinationRejected(t *testing.T) {
	dest := t.TempDir()
	mac, _ := Lookup("macos")
	_, err := quietInstaller(dest).Install(context.Background(), mac, filepath.Join(dest, "macos"))
	assert.Error(t, err)
}

func TestInstall_Download(t *testing.T) {
	// One archive per binary, each holding only its own executable.
	archives := map[string][]byte{
		"/ffmpeg/getrelease/ffmpeg/zip":  zipArchive(t, []member{{name: "ffmpeg", body: "mac-ffmpeg"}}),
		"/ffmpeg/getrelease/ffprobe/zip": zipArchive(t, []member{{name: "ffprobe", body: "mac-ffprobe"}}),
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	mac, _ := Lookup("macos")
	mac.URLs = []string{
		srv.URL + "/ffmpeg/getrelease/ffmpeg/zip",
		srv.URL + "/ffmpeg/getrelease/ffprobe/zip",
	}

	dest := t.TempDir()
	var bar bytes.Buffer
	inst := NewInstaller(dest, nil)
	inst.Client = srv.Client()
	inst.Progress = &bar

	paths, err := inst.Install(context.Background(), mac, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dest, "macos", "ffmpeg"),
		filepath.Join(dest, "macos", "ffprobe"),
	}, paths)
	assertExecutable(t, filepath.Join(dest, "macos", "ffmpeg"), "mac-ffmpeg")
	assertExecutable(t, filepath.Join(dest, "macos", "ffprobe"), "mac-ffprobe")
	assert.EqualValues(t, 2, hits.Load())
	assert.Contains(t, bar.String(), "Downloading macOS")
}

func TestInstall_DownloadMissingSecondArchive(t *testing.T) {
	body := zipArchive(t, []member{{name: "ffmpeg", body: "mac-ffmpeg"}})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	mac, _ := Lookup("macos")
	mac.URLs = []string{srv.URL + "/ffmpeg/zip"}
	inst := quietInstaller(t.TempDir())
	inst.Client = srv.Client()

	_, err := inst.Install(context.Background(), mac, "")
	require.ErrorIs(t, err, ErrMissingBinaries)
	assert.Contains(t, err.Error(), "ffprobe")
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	linux, _ := Lookup("linux")
	inst := quietInstaller(t.TempDir())
	inst.Client = srv.Client()

	_, err := inst.Download(context.Background(), linux, srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
