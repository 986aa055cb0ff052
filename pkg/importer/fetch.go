package importer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// retryBase is the first backoff delay; attempts wait 2x, 4x.
var retryBase = time.Second

// Fetch downloads url to dest with retries and timeout.
func Fetch(ctx context.Context, url, dest string) error {
	client := &http.Client{Timeout: 10 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * retryBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return fmt.Errorf("create file: %w", err)
		}

		_, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return closeErr
		}
		return nil
	}
	return fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}

// FetchTable downloads a nutrition table into dir and returns the path of the
// delimited file. ZIP archives are unpacked and their first .csv/.tsv/.txt
// member is returned.
func FetchTable(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	name := filepath.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		name = "table.csv"
	}
	dest := filepath.Join(dir, name)
	if err := Fetch(ctx, url, dest); err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(dest), ".zip") {
		return dest, nil
	}

	paths, err := unzipFile(dest, dir)
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".csv", ".tsv", ".txt":
			return p, nil
		}
	}
	return "", fmt.Errorf("no table file in %s", dest)
}

// maxEntryBytes caps the uncompressed size of one extracted archive entry.
var maxEntryBytes int64 = 512 << 20

// unzipFile extracts the regular files of a ZIP archive flat into destDir and
// returns their paths. Directories, symlinks and other special entries are
// skipped; an entry larger than maxEntryBytes is an error.
func unzipFile(src, destDir string) ([]string, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var paths []string
	for _, f := range r.File {
		if !f.Mode().IsRegular() {
			continue
		}
		name := filepath.Base(filepath.FromSlash(f.Name))
		if name == "." || name == ".." || name == string(filepath.Separator) {
			continue
		}
		if f.UncompressedSize64 > uint64(maxEntryBytes) {
			return nil, fmt.Errorf("zip entry %s: %d bytes exceeds limit of %d", f.Name, f.UncompressedSize64, maxEntryBytes)
		}
		destPath := filepath.Join(destDir, name)
		if err := extractEntry(f, destPath); err != nil {
			return nil, err
		}
		paths = append(paths, destPath)
	}
	return paths, nil
}

// extractEntry copies one entry to destPath, enforcing maxEntryBytes on the
// bytes actually read since the declared size may lie.
func extractEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntryBytes+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > maxEntryBytes {
		err = fmt.Errorf("exceeds limit of %d bytes", maxEntryBytes)
	}
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
