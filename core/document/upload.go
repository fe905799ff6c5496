package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
)

const uploadField = "file"

var (
	ErrNoFile       = core.NewFieldError(uploadField, "please select a file to upload")
	ErrEmptyFile    = core.NewFieldError(uploadField, "the uploaded file is empty")
	errTooLargeText = "file size must be less than %s"
	errFileTypeText = "only %s files are allowed"

	extensions = map[string]string{
		"application/pdf": ".pdf",
		"image/jpeg":      ".jpg",
		"image/png":       ".png",
		"text/plain":      ".txt",
	}
	typeLabels = map[string]string{
		"application/pdf": "PDF",
		"image/jpeg":      "JPG",
		"image/png":       "PNG",
		"text/plain":      "TXT",
	}
)

// File is an accepted upload held in memory.
type File struct {
	Filename string
	MimeType string
	Size     int64
	Content  []byte
}

func (f File) IsPDF() bool   { return f.MimeType == "application/pdf" }
func (f File) IsImage() bool { return strings.HasPrefix(f.MimeType, "image/") }
func (f File) IsText() bool  { return strings.HasPrefix(f.MimeType, "text/plain") }

// Ext returns the canonical file extension for the sniffed MIME type.
func (f File) Ext() string {
	if ext, ok := extensions[f.MimeType]; ok {
		return ext
	}
	return filepath.Ext(f.Filename)
}

// ReadUpload reads and checks an uploaded file against the upload limits.
// The declared size is checked before reading and the MIME type is sniffed from the content,
// the client supplied Content-Type is never trusted.
func ReadUpload(r io.Reader, filename string, size int64, conf core.UploadConfig) (File, error) {
	if r == nil || filename == "" {
		return File{}, ErrNoFile
	}
	if size > conf.MaxSize {
		return File{}, tooLargeErr(conf.MaxSize)
	}

	// never read more than the limit, whatever the declared size
	content, err := io.ReadAll(io.LimitReader(r, conf.MaxSize+1))
	if err != nil {
		return File{}, errors.Wrap(err, "reading upload")
	}
	return CheckUpload(filename, content, conf)
}

// CheckUpload applies the size and type rules to in-memory content.
func CheckUpload(filename string, content []byte, conf core.UploadConfig) (File, error) {
	if filename == "" {
		return File{}, ErrNoFile
	}
	size := int64(len(content))
	if size == 0 {
		return File{}, ErrEmptyFile
	}
	if size > conf.MaxSize {
		return File{}, tooLargeErr(conf.MaxSize)
	}

	mtype := mimetype.Detect(content)
	var allowed bool
	for _, t := range conf.AllowedTypes {
		if mtype.Is(t) {
			allowed = true
			break
		}
	}
	if !allowed {
		return File{}, fileTypeErr(conf.AllowedTypes)
	}

	mime := mtype.String()
	if i := strings.Index(mime, ";"); i > 0 { // drop "; charset=utf-8"
		mime = mime[:i]
	}
	return File{
		Filename: filepath.Base(filename),
		MimeType: mime,
		Size:     size,
		Content:  content,
	}, nil
}

func tooLargeErr(max int64) error {
	return core.NewFieldError(uploadField, fmt.Sprintf(errTooLargeText, humanSize(max)))
}

func fileTypeErr(allowed []string) error {
	labels := make([]string, 0, len(allowed))
	for _, t := range allowed {
		if l, ok := typeLabels[t]; ok {
			labels = append(labels, l)
		} else {
			labels = append(labels, t)
		}
	}
	return core.NewFieldError(uploadField, fmt.Sprintf(errFileTypeText, strings.Join(labels, ", ")))
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

// Store persists accepted uploads.
type Store interface {
	Save(f File) (string, error)
}

type diskStore struct {
	dir string
}

// NewDiskStore stores uploads as <dir>/<uuid><ext>.
func NewDiskStore(dir string) Store {
	return &diskStore{dir: dir}
}

func (s *diskStore) Save(f File) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", errors.Wrap(err, "creating upload dir")
	}
	path := filepath.Join(s.dir, uuid.New().String()+f.Ext())
	if err := os.WriteFile(path, f.Content, 0o640); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return path, nil
}
