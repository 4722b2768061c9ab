package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Download fetches url into dest. The body is streamed into a temporary file
// next to dest and renamed into place only after a complete transfer, so a
// failed download never leaves a truncated archive behind.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	c.logger.Debug("download starting", slog.String("url", url), slog.String("dest", dest))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s (%s)", ErrHTTPStatus, resp.Status, url)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	var body io.Reader = resp.Body
	var bar Progress
	if c.progress != nil {
		bar = c.progress(filepath.Base(dest), resp.ContentLength)
		body = &countingReader{r: resp.Body, progress: bar}
	}

	n, err := io.Copy(tmp, body)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return err
	}

	c.logger.Debug("download complete", slog.String("url", url), slog.Int64("bytes", n))
	return nil
}

// TempPath returns a unique path in the OS temp directory such as
// goldberg_<uuid>.zip.
func TempPath(prefix, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s_%s.%s", prefix, uuid.NewString(), ext))
}

type countingReader struct {
	r        io.Reader
	done     int64
	progress Progress
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.done += int64(n)
		cr.progress.Update(cr.done)
	}
	return n, err
}
