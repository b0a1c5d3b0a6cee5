// Package storage implements the object store holding uploaded and signed PDFs.
//
// Objects are kept on the local filesystem below a root directory and are
// addressed by an ID of the form "<folder>/<name>". Every object has a public
// URL of the form "<base>/files/<id>", which the HTTP server resolves back
// through Open.
//
// Fetch retrieves bytes for any URL. URLs pointing into this store are read
// from disk; anything else is requested over HTTP.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go-signpdf/internal/utils"
)

// FilesPrefix is the URL path under which stored objects are served.
const FilesPrefix = "/files/"

var (
	ErrNotFound  = errors.New("object not found")
	ErrInvalidID = errors.New("invalid object id")
)

// FetchError reports a non-success response from an upstream URL.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: status %d", e.URL, e.Status)
}

// Object identifies a stored blob.
type Object struct {
	ID  string `json:"public_id"`
	URL string `json:"url"`
}

type FileStore struct {
	Root    string
	BaseURL string
	Client  *http.Client
	// MaxFetchBytes limits the size of remote documents read by Fetch.
	MaxFetchBytes int64
}

func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileStore{
		Root:          root,
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Client:        &http.Client{Timeout: 60 * time.Second},
		MaxFetchBytes: 50 * 1024 * 1024,
	}, nil
}

// Put stores data under a fresh name in folder. name is used as a readable
// suffix only and may be empty; ext includes the leading dot.
func (s *FileStore) Put(ctx context.Context, data []byte, folder, name, ext string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	filename := utils.GenerateUUID()
	if name != "" {
		filename = fmt.Sprintf("%s-%s", filename, utils.SanitizeFilename(strings.TrimSuffix(name, ext)))
	}
	id := path.Join(utils.SanitizeFilename(folder), filename+ext)

	p, err := s.pathFor(id)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return Object{}, fmt.Errorf("failed to create folder: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return Object{}, fmt.Errorf("failed to save object: %w", err)
	}
	return Object{ID: id, URL: s.URL(id)}, nil
}

func (s *FileStore) URL(id string) string {
	return s.BaseURL + FilesPrefix + id
}

// Open returns a reader for the object with the given ID.
func (s *FileStore) Open(id string) (*os.File, error) {
	p, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return f, err
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Fetch returns the bytes behind rawURL.
func (s *FileStore) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if id, ok := s.localID(rawURL); ok {
		f, err := s.Open(id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &FetchError{URL: rawURL, Status: http.StatusNotFound}
			}
			return nil, err
		}
		defer f.Close()
		return s.readLimited(rawURL, f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", req.URL.Scheme)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}
	return s.readLimited(rawURL, resp.Body)
}

// readLimited reads r, failing once it yields more than MaxFetchBytes.
func (s *FileStore) readLimited(rawURL string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.MaxFetchBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	if int64(len(data)) > s.MaxFetchBytes {
		return nil, fmt.Errorf("document at %s exceeds %d bytes", rawURL, s.MaxFetchBytes)
	}
	return data, nil
}

func (s *FileStore) localID(rawURL string) (string, bool) {
	prefix := s.BaseURL + FilesPrefix
	if s.BaseURL == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, prefix), true
}

// pathFor maps an object ID to a path below Root, rejecting IDs that would
// escape it.
func (s *FileStore) pathFor(id string) (string, error) {
	clean := path.Clean("/" + id)
	if id == "" || clean == "/" || clean != "/"+id {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean[1:])), nil
}
