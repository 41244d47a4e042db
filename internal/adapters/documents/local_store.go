package documents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"regexp"

	"github.com/SscSPs/etat_civil_app/internal/apperrors"
	portssvc "github.com/SscSPs/etat_civil_app/internal/core/ports/services"
	"github.com/google/uuid"
)

var refPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,8})?$`)

// LocalStore keeps documents on a local or mounted volume. References are
// generated here and never contain path separators.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create document dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

var _ portssvc.DocumentStore = (*LocalStore)(nil)

func (s *LocalStore) Store(ctx context.Context, content []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := uuid.NewString() + extensionFor(contentType)

	// Write then rename so a reader never sees a partial file.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, ref)); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !refPattern.MatchString(ref) {
		return nil, apperrors.NewNotFoundError("document " + ref)
	}
	content, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("document " + ref)
		}
		return nil, fmt.Errorf("read document %s: %w", ref, err)
	}
	return content, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/json":
		return ".json"
	case "application/pdf":
		return ".pdf"
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	ext := exts[0]
	if !refPattern.MatchString("00000000-0000-0000-0000-000000000000" + ext) {
		return ""
	}
	return ext
}
