package document

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darpanintel/darpan/core"
	llmsvc "github.com/darpanintel/darpan/services/llm"
	logsvc "github.com/darpanintel/darpan/services/logger"
)

var (
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	gifBytes = append([]byte("GIF89a"), make([]byte, 32)...)

	testUploadConf = core.UploadConfig{
		MaxSize:      1 << 10,
		AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
	}
)

func fieldError(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	require.NotEmpty(t, verr.Fields)
	assert.Equal(t, "file", verr.Fields[0].Field)
	return verr.Fields[0].Error
}

func TestCheckUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMIME string
		wantErr  string
	}{
		{name: "pdf", filename: "offer.pdf", content: pdfBytes, wantMIME: "application/pdf"},
		{name: "png", filename: "scan.png", content: pngBytes, wantMIME: "image/png"},
		{name: "no file", filename: "", content: pdfBytes, wantErr: "please select a file to upload"},
		{name: "empty", filename: "offer.pdf", content: nil, wantErr: "the uploaded file is empty"},
		{name: "disallowed type", filename: "anim.gif", content: gifBytes, wantErr: "only PDF, JPG, PNG files are allowed"},
		// the extension does not matter, the content is sniffed
		{name: "spoofed extension", filename: "offer.pdf", content: gifBytes, wantErr: "only PDF, JPG, PNG files are allowed"},
		{name: "too large", filename: "big.pdf", content: append(pdfBytes, make([]byte, 2<<10)...), wantErr: "file size must be less than 1KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := CheckUpload(tt.filename, tt.content, testUploadConf)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, fieldError(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, f.MimeType)
			assert.Equal(t, int64(len(tt.content)), f.Size)
			assert.Equal(t, tt.filename, f.Filename)
		})
	}
}

func TestReadUpload_SizeCheckedBeforeRead(t *testing.T) {
	r := &countingReader{r: bytes.NewReader(pdfBytes)}
	_, err := ReadUpload(r, "offer.pdf", 10<<20, testUploadConf)
	assert.Equal(t, "file size must be less than 1KB", fieldError(t, err))
	assert.Zero(t, r.n, "nothing should be read when the declared size is over the limit")

	// a lying size header is still caught by the limited read
	big := append(append([]byte{}, pdfBytes...), make([]byte, 4<<10)...)
	_, err = ReadUpload(bytes.NewReader(big), "offer.pdf", 10, testUploadConf)
	assert.Equal(t, "file size must be less than 1KB", fieldError(t, err))

	f, err := ReadUpload(bytes.NewReader(pdfBytes), "dir/offer.pdf", int64(len(pdfBytes)), testUploadConf)
	require.NoError(t, err)
	assert.Equal(t, "offer.pdf", f.Filename)
	assert.True(t, f.IsPDF())
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestDiskStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store := NewDiskStore(dir)

	f := File{Filename: "offer.pdf", MimeType: "application/pdf", Content: pdfBytes}
	path, err := store.Save(f)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".pdf"))

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, saved)

	path2, err := store.Save(f)
	require.NoError(t, err)
	assert.NotEqual(t, path, path2)
}

func TestExtractor_ExtractText(t *testing.T) {
	llm := llmsvc.NewServiceMock(nil)
	llm.TranscribeFunc = func(_ context.Context, image []byte, mimeType string) (string, error) {
		assert.Equal(t, "image/png", mimeType)
		return "UNIVERSITY OF SYDNEY\nLetter of Offer", nil
	}
	ex := NewExtractor(llm, logsvc.NewLogger("TEST", io.Discard))
	ctx := context.Background()

	text, err := ex.ExtractText(ctx, File{Filename: "scan.png", MimeType: "image/png", Content: pngBytes})
	require.NoError(t, err)
	assert.Equal(t, "UNIVERSITY OF SYDNEY\nLetter of Offer", text)

	text, err = ex.ExtractText(ctx, File{Filename: "note.txt", MimeType: "text/plain", Content: []byte("  Visa refused \n")})
	require.NoError(t, err)
	assert.Equal(t, "Visa refused", text)

	// transcription failures degrade to empty text
	llm.TranscribeFunc = nil
	text, err = ex.ExtractText(ctx, File{Filename: "scan.png", MimeType: "image/png", Content: pngBytes})
	require.NoError(t, err)
	assert.Empty(t, text)

	// unreadable pdfs too
	text, err = ex.ExtractText(ctx, File{Filename: "broken.pdf", MimeType: "application/pdf", Content: []byte("%PDF-garbage")})
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = ex.ExtractText(ctx, File{Filename: "anim.gif", MimeType: "application/zip", Content: gifBytes})
	assert.Error(t, err)
}

func TestTextOrNote(t *testing.T) {
	assert.Equal(t, "hello", TextOrNote("hello", "a.pdf"))
	note := TextOrNote("  ", "a.pdf")
	assert.True(t, strings.HasPrefix(note, NoTextNote))
	assert.Contains(t, note, "a.pdf")
}
