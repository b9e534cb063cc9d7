// Package fetch retrieves document packages from local files and zip
// archives and prepares them for reading sessions.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"bookview/archive"
	"bookview/session"
)

// Fetcher reads document packages. Source is either a path to a file or a
// path to a file inside zip archive, e.g. "library.zip/authors/book.epub".
type Fetcher struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Fetcher {
	return &Fetcher{log: log.Named("fetch")}
}

// Fetch returns document with its content hash. Failures to read are
// reported as session.ErrFetch, content which is not a document package as
// session.ErrDecode. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, src string) (*session.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: no source has been specified", session.ErrFetch)
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrFetch, err)
	}

	start := time.Now()
	name, data, err := f.read(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := CheckPackage(data); err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}

	doc := &session.Document{
		Name: name,
		Hash: Hash(data),
		Data: data,
	}
	f.log.Debug("Document fetched", zap.String("source", src), zap.String("hash", doc.Hash), zap.Int("size", len(data)), zap.Duration("elapsed", time.Since(start)))
	return doc, nil
}

// read walks source path up until it finds something existing on disk: a
// document file or an archive with the rest of the path inside it.
func (f *Fetcher) read(ctx context.Context, src string) (string, []byte, error) {
	var head string
	for head = src; len(head) != 0; head, _ = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			return "", nil, fmt.Errorf("%w: %s is a directory", session.ErrFetch, head)
		}
		if !fi.Mode().IsRegular() {
			return "", nil, fmt.Errorf("%w: unexpected path mode for (%s) => (%s)", session.ErrFetch, head, strings.TrimPrefix(src, head))
		}

		inner := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
		if len(inner) == 0 {
			data, err := os.ReadFile(head)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %w", session.ErrFetch, err)
			}
			return filepath.Base(head), data, nil
		}

		// zip entry names always use forward slashes
		inner = filepath.ToSlash(inner)
		f.log.Debug("Looking inside archive", zap.String("archive", head), zap.String("path", inner))
		data, err := archive.ReadFile(head, inner)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", session.ErrFetch, err)
		}
		return path.Base(inner), data, nil
	}
	return "", nil, fmt.Errorf("%w: source was not found (%s)", session.ErrFetch, src)
}

// CheckPackage verifies that data looks like a document package: EPUB or
// at least zip container.
func CheckPackage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty content", session.ErrDecode)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return fmt.Errorf("%w: %w", session.ErrDecode, err)
	}
	switch kind.Extension {
	case "epub", "zip":
		return nil
	}
	if kind == filetype.Unknown {
		return fmt.Errorf("%w: unrecognized content", session.ErrDecode)
	}
	return fmt.Errorf("%w: unsupported content type %s", session.ErrDecode, kind.MIME.Value)
}

// Hash is content address of the document, it scopes every persisted piece
// of reading state.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
