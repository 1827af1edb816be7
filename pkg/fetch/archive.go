// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"archive/tar"
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"

	"github.com/invowk/buildkit/pkg/buildconf"
)

const (
	sha256Prefix = "sha256:"

	// maxArchiveBytes bounds both the download and the extracted size.
	maxArchiveBytes = 1 << 30
)

var (
	// ErrChecksumMismatch indicates the downloaded archive does not match its declared hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnsafePath indicates an archive entry that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

type (
	// ArchiveFetcher downloads a tarball (optionally gzip-compressed), checks
	// its sha256 digest and extracts it. A single top-level directory shared
	// by every entry is stripped.
	ArchiveFetcher struct {
		// Client performs downloads; http.DefaultClient when nil.
		Client *http.Client
		Logger *log.Logger
	}

	// ChecksumError provides details about a digest mismatch.
	ChecksumError struct {
		URL      string
		Expected string
		Got      string
	}
)

// Error implements the error interface.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s\nExpected: %s\nGot:      %s", e.URL, e.Expected, e.Got)
}

// Unwrap returns ErrChecksumMismatch so callers can use errors.Is.
func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// Fetch implements Fetcher for buildconf.RemoteArchive sources.
func (f *ArchiveFetcher) Fetch(ctx context.Context, src buildconf.VendoredSource, dest string) error {
	archive, ok := src.(buildconf.RemoteArchive)
	if !ok {
		return &FetchError{Source: src, Dest: dest, Err: fmt.Errorf("not an archive source: %s", src.Kind())}
	}
	if Staged(dest, archive.Hash) {
		f.logger().Debug("archive already staged", "dest", dest)
		return nil
	}
	if err := f.fetch(ctx, archive, dest); err != nil {
		return &FetchError{Source: src, Dest: dest, Err: err}
	}
	return nil
}

func (f *ArchiveFetcher) fetch(ctx context.Context, src buildconf.RemoteArchive, dest string) (err error) {
	want, err := parseSHA256(src.Hash)
	if err != nil {
		return err
	}

	f.logger().Info("downloading archive", "url", src.URL)
	path, err := f.download(ctx, src.URL, filepath.Dir(dest))
	if err != nil {
		return err
	}
	defer func() {
		// Downloaded archive is scratch data.
		_ = os.Remove(path)
	}()

	got, err := fileSHA256(path)
	if err != nil {
		return err
	}
	if got != want {
		return &ChecksumError{URL: src.URL, Expected: want, Got: got}
	}

	tmp, err := stagingDir(dest)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			// Best-effort cleanup of a partial extraction.
			_ = os.RemoveAll(tmp)
		}
	}()

	if err = extract(path, tmp); err != nil {
		return err
	}
	return commit(tmp, dest, src.Hash)
}

// download writes the response body for url to a temp file in dir.
func (f *ArchiveFetcher) download(ctx context.Context, url, dir string) (_ string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() {
		// Response body is fully consumed or abandoned on error.
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".buildkit-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxArchiveBytes+1))
	if err == nil && n > maxArchiveBytes {
		err = fmt.Errorf("archive exceeds %d bytes", maxArchiveBytes)
	}
	if err != nil {
		// Best-effort removal of partially written temp file.
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("writing to temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (f *ArchiveFetcher) logger() *log.Logger {
	if f.Logger == nil {
		return log.Default()
	}
	return f.Logger
}

// parseSHA256 accepts "sha256:<hex>" or a bare 64-character hex digest.
func parseSHA256(hash string) (string, error) {
	h := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hash), sha256Prefix))
	if len(h) != sha256.Size*2 {
		return "", fmt.Errorf("unsupported archive hash %q (expected sha256:<64 hex digits>)", hash)
	}
	if _, err := hex.DecodeString(h); err != nil {
		return "", fmt.Errorf("unsupported archive hash %q: %w", hash, err)
	}
	return h, nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// extract unpacks the tar (or tar.gz) at archivePath into dir.
func extract(archivePath, dir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() {
		// Read-only file handle; close errors are exotic.
		_ = f.Close()
	}()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer func() {
			// Only read from; close errors are not actionable.
			_ = gz.Close()
		}()
		r = gz
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	entries, err := readEntries(tar.NewReader(r), root)
	if closeErr := root.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return flattenSingleRoot(dir, entries)
}

// readEntries writes every entry below root and returns the top-level names.
// All writes go through root, so a symlink extracted earlier can never
// redirect a later entry outside the destination.
func readEntries(tr *tar.Reader, root *os.Root) (map[string]bool, error) {
	roots := make(map[string]bool)
	var written int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return roots, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}

		name := filepath.FromSlash(strings.TrimPrefix(hdr.Name, "./"))
		if name == "" || name == "." || hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		name, err = cleanName(name)
		if err != nil {
			return nil, err
		}
		roots[strings.SplitN(filepath.ToSlash(name), "/", 2)[0]] = true

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(name, 0o755); err != nil {
				return nil, fmt.Errorf("%w: creating %s: %w", ErrUnsafePath, name, err)
			}
		case tar.TypeReg:
			n, err := writeFile(root, name, tr, hdr.FileInfo().Mode().Perm(), maxArchiveBytes-written)
			if err != nil {
				return nil, err
			}
			written += n
		case tar.TypeSymlink:
			link := filepath.FromSlash(hdr.Linkname)
			if filepath.IsAbs(link) || !within(".", filepath.Join(filepath.Dir(name), link)) {
				return nil, fmt.Errorf("%w: symlink %s -> %s", ErrUnsafePath, hdr.Name, hdr.Linkname)
			}
			if err := root.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return nil, fmt.Errorf("%w: creating %s: %w", ErrUnsafePath, filepath.Dir(name), err)
			}
			if err := root.Symlink(hdr.Linkname, name); err != nil {
				return nil, fmt.Errorf("%w: creating symlink %s: %w", ErrUnsafePath, name, err)
			}
		default:
			// Hard links, devices and FIFOs are not needed to build sources.
		}
	}
}

func writeFile(root *os.Root, name string, r io.Reader, perm os.FileMode, budget int64) (_ int64, err error) {
	if err := root.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", ErrUnsafePath, filepath.Dir(name), err)
	}
	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: creating %s: %w", ErrUnsafePath, name, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	n, err := io.Copy(out, io.LimitReader(r, budget+1))
	if err != nil {
		return n, fmt.Errorf("extracting %s: %w", name, err)
	}
	if n > budget {
		return n, fmt.Errorf("archive expands beyond %d bytes", maxArchiveBytes)
	}
	return n, nil
}

// cleanName rejects absolute names and ".." escapes and returns name cleaned.
func cleanName(name string) (string, error) {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	name = filepath.Clean(name)
	if !within(".", name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return name, nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// flattenSingleRoot hoists the contents of dir/<root> into dir when the
// archive had exactly one top-level directory.
func flattenSingleRoot(dir string, roots map[string]bool) error {
	if len(roots) != 1 {
		return nil
	}
	var root string
	for r := range roots {
		root = r
	}
	inner := filepath.Join(dir, root)
	if info, err := os.Lstat(inner); err != nil || !info.IsDir() {
		return nil
	}

	children, err := os.ReadDir(inner)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inner, err)
	}
	// Move the root aside first: it may contain an entry with its own name.
	hoisted := filepath.Join(dir, ".buildkit-root")
	if err := os.Rename(inner, hoisted); err != nil {
		return fmt.Errorf("flattening %s: %w", inner, err)
	}
	for _, c := range children {
		if err := os.Rename(filepath.Join(hoisted, c.Name()), filepath.Join(dir, c.Name())); err != nil {
			return fmt.Errorf("flattening %s: %w", c.Name(), err)
		}
	}
	return os.Remove(hoisted)
}
