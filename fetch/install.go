package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/schollz/progressbar/v3"
)

// Installer places a target's binaries under Dest/<target dir>.
type Installer struct {
	Dest   string
	Client *http.Client
	Logger hclog.Logger
	// Progress receives the download bar. Nil hides it.
	Progress io.Writer
}

// NewInstaller returns an Installer writing below dest.
func NewInstaller(dest string, logger hclog.Logger) *Installer {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Installer{
		Dest:     dest,
		Client:   &http.Client{Timeout: 10 * time.Minute},
		Logger:   logger.Named("fetch"),
		Progress: os.Stderr,
	}
}

// TargetDir is where t's binaries end up.
func (i *Installer) TargetDir(t Target) string {
	return filepath.Join(i.Dest, t.Dir)
}

// Install fetches t. With from empty every archive in t.URLs is downloaded
// and extracted; otherwise from names a local archive or a directory holding the binaries.
// It returns the installed paths.
func (i *Installer) Install(ctx context.Context, t Target, from string) ([]string, error) {
	dir := i.TargetDir(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var (
		written map[string]bool
		err     error
	)
	switch {
	case from == "":
		written, err = i.downloadAll(ctx, t, dir)
	case samePath(from, dir):
		return nil, fmt.Errorf("source %s is the destination", from)
	default:
		info, serr := os.Stat(from)
		if serr != nil {
			return nil, serr
		}
		if info.IsDir() {
			written, err = copyFromDir(t, from, dir)
		} else {
			written, err = extract(t, from, dir)
		}
	}
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, b := range t.Binaries {
		if !written[b] {
			missing = append(missing, b)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinaries, strings.Join(missing, ", "))
	}

	paths := make([]string, 0, len(written))
	for b := range written {
		paths = append(paths, filepath.Join(dir, b))
	}
	sort.Strings(paths)
	i.Logger.Info("installed", "target", t.Name, "dir", dir, "files", len(paths))
	return paths, nil
}

// downloadAll fetches and extracts each of t's archives in turn.
func (i *Installer) downloadAll(ctx context.Context, t Target, dir string) (map[string]bool, error) {
	written := make(map[string]bool)
	for _, url := range t.URLs {
		archive, err := i.Download(ctx, t, url)
		if err != nil {
			return written, err
		}
		got, err := extract(t, archive, dir)
		os.Remove(archive)
		if err != nil {
			return written, err
		}
		for b := range got {
			written[b] = true
		}
	}
	return written, nil
}

// Download saves url, one of t's archives, to a temporary file and returns
// its path. The caller removes it.
func (i *Installer) Download(ctx context.Context, t Target, url string) (string, error) {
	client := i.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	i.Logger.Info("downloading", "target", t.Name, "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "ffmpeg-"+t.Dir+"-*")
	if err != nil {
		return "", err
	}

	var w io.Writer = tmp
	if i.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetDescription("Downloading "+t.Name),
			progressbar.OptionSetWriter(i.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(i.Progress) }),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
		defer bar.Finish()
		w = io.MultiWriter(tmp, bar)
	}

	n, err := io.Copy(w, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	i.Logger.Debug("downloaded", "target", t.Name, "bytes", n, "path", tmp.Name())
	return tmp.Name(), nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// copyFromDir copies the wanted binaries from the top of src.
func copyFromDir(t Target, src, dir string) (map[string]bool, error) {
	written := make(map[string]bool)
	for _, b := range t.Binaries {
		in, err := os.Open(filepath.Join(src, b))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return written, err
		}
		err = writeExecutable(filepath.Join(dir, b), in)
		in.Close()
		if err != nil {
			return written, err
		}
		written[b] = true
	}
	return written, nil
}
