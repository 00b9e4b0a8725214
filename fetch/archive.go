package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Kind is an archive container format.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindTarXz
	KindTarGz
)

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTarXz:
		return "tar.xz"
	case KindTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

var (
	zipMagic  = []byte("PK\x03\x04")
	xzMagic   = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Sniff identifies an archive from its leading bytes. Download URLs do not
// reliably carry a suffix, so the content decides.
func Sniff(header []byte) (Kind, error) {
	switch {
	case bytes.HasPrefix(header, zipMagic):
		return KindZip, nil
	case bytes.HasPrefix(header, xzMagic):
		return KindTarXz, nil
	case bytes.HasPrefix(header, gzipMagic):
		return KindTarGz, nil
	}
	return KindUnknown, ErrUnknownArchive
}

// SniffFile reads the header of the file at p.
func SniffFile(p string) (Kind, error) {
	f, err := os.Open(p)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	header := make([]byte, len(xzMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindUnknown, err
	}
	return Sniff(header[:n])
}

// extract writes every member of the archive whose base name t wants into
// dir and returns the names written. Other members are skipped.
func extract(t Target, archivePath, dir string) (map[string]bool, error) {
	kind, err := SniffFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}
	switch kind {
	case KindZip:
		return extractZip(t, archivePath, dir)
	default:
		return extractTar(t, kind, archivePath, dir)
	}
}

func extractZip(t Target, archivePath, dir string) (map[string]bool, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	written := make(map[string]bool)
	for _, f := range zr.File {
		base := path.Base(f.Name)
		if f.FileInfo().IsDir() || !t.wants(base) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return written, fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = writeExecutable(filepath.Join(dir, base), rc)
		rc.Close()
		if err != nil {
			return written, err
		}
		written[base] = true
	}
	return written, nil
}

func extractTar(t Target, kind Kind, archivePath, dir string) (map[string]bool, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader
	switch kind {
	case KindTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open xz: %w", err)
		}
		r = xr
	case KindTarGz:
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer gr.Close()
		r = gr
	default:
		return nil, ErrUnknownArchive
	}

	written := make(map[string]bool)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("read tar: %w", err)
		}
		base := path.Base(hdr.Name)
		if hdr.Typeflag != tar.TypeReg || !t.wants(base) {
			continue
		}
		if err := writeExecutable(filepath.Join(dir, base), tr); err != nil {
			return written, err
		}
		written[base] = true
	}
}

// writeExecutable copies r to dst with mode 0755.
func writeExecutable(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile's mode is filtered by umask and ignored for existing files.
	return os.Chmod(dst, 0o755)
}
