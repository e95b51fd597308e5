// Package fetch retrieves schema documents from local paths and URLs.
//
// URL sources are downloaded into a cache folder first and read from
// there. A download is written to a temporary file in the same folder
// and renamed over the final name once complete, so the cache never
// holds a partial schema.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/CognitoIQ/ocxschema/xsderrors"
)

// DefaultTimeout bounds a single download when no client is supplied.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent with every download.
const DefaultUserAgent = "ocxschema"

// A Fetcher loads schema documents.
type Fetcher struct {
	// Client is the HTTP client used for downloads.
	Client *http.Client
	// Folder is the cache folder for downloaded schemas.
	Folder string
	// UserAgent is the User-Agent header of download requests.
	UserAgent string
	Logger    zerolog.Logger
}

// New returns a Fetcher caching downloads in folder. An empty folder
// selects DefaultFolder.
func New(folder string, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: DefaultTimeout},
		Folder:    folder,
		UserAgent: DefaultUserAgent,
		Logger:    logger,
	}
}

// DefaultFolder is the user's cache directory, or the temp directory
// when the system has none.
func DefaultFolder() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "ocxschema")
	}
	return filepath.Join(os.TempDir(), "ocxschema")
}

// IsURL reports whether location is an http or https URL.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Resolve returns the location of ref relative to the document at
// base. Absolute URLs and paths are returned unchanged.
func Resolve(base, ref string) string {
	if IsURL(ref) || strings.HasPrefix(ref, "file://") {
		return ref
	}
	if IsURL(base) {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return u.ResolveReference(r).String()
	}
	base = strings.TrimPrefix(base, "file://")
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref))
}

// Load reads the document at location and returns its bytes together
// with the canonical location: the URL for downloads, the absolute
// path for files. Missing files and failed downloads are reported as
// *xsderrors.SourceNotFoundError.
func (f *Fetcher) Load(ctx context.Context, location string) ([]byte, string, error) {
	if IsURL(location) {
		file, err := f.Download(ctx, location)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, "", &xsderrors.SourceNotFoundError{Source: location, Cause: err}
		}
		return data, location, nil
	}
	file := strings.TrimPrefix(location, "file://")
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", &xsderrors.SourceNotFoundError{Source: location, Cause: err}
	}
	f.Logger.Debug().Str("source", file).Int("bytes", len(data)).Msg("schema read")
	return data, file, nil
}

// CachePath returns the file a download of rawURL is stored in.
func (f *Fetcher) CachePath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "schema.xsd"
	}
	folder := f.Folder
	if folder == "" {
		folder = DefaultFolder()
	}
	return filepath.Join(folder, name), nil
}

// Download fetches rawURL into the cache folder, replacing an earlier
// copy, and returns the cached file's path.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	dest, err := f.CachePath(rawURL)
	if err != nil {
		return "", &xsderrors.SourceNotFoundError{Source: rawURL, Cause: err}
	}
	start := time.Now()
	n, err := f.download(ctx, rawURL, dest)
	if err != nil {
		return "", &xsderrors.SourceNotFoundError{Source: rawURL, Cause: err}
	}
	f.Logger.Info().
		Str("source", rawURL).
		Str("path", dest).
		Int64("bytes", n).
		Dur("duration", time.Since(start)).
		Msg("schema downloaded")
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) (n int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create cache folder: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	n, err = io.Copy(tmp, resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response body: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), dest); err != nil {
		return 0, fmt.Errorf("rename into cache: %w", err)
	}
	return n, nil
}

// IsNotFound reports whether err means the source does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, xsderrors.ErrSourceNotFound)
}
