package echoapi

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/document"
	"github.com/darpanintel/darpan/core/user"
)

var (
	orderingParam = "ordering"
	uploadField   = "file"
)

// room left for multipart boundaries and part headers on top of the file itself
const multipartOverhead = 64 << 10

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// docIntake turns a multipart upload into the inputs of an analysis:
// the file is checked, stored and its text extracted.
type docIntake struct {
	conf      core.UploadConfig
	store     document.Store
	extractor document.Extractor
}

// bodyLimit rejects upload requests well above the allowed file size before the body is read.
func (di docIntake) bodyLimit() echo.MiddlewareFunc {
	if di.conf.MaxSize <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(fmt.Sprintf("%dB", di.conf.MaxSize+multipartOverhead))
}

func (di docIntake) read(ctx echo.Context) (document.File, error) {
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		// no multipart body or no "file" part
		return document.File{}, document.ErrNoFile
	}
	f, err := fh.Open()
	if err != nil {
		return document.File{}, errors.Wrap(err, "opening upload")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()
	return document.ReadUpload(f, fh.Filename, fh.Size, di.conf)
}

// accept returns the analysis record draft and the text to analyse.
// The text is never empty: a note naming the file stands in when nothing could be extracted.
func (di docIntake) accept(ctx echo.Context, usr user.User) (analysis.NewAnalysis, string, error) {
	f, err := di.read(ctx)
	if err != nil {
		return analysis.NewAnalysis{}, "", err
	}
	path, err := di.store.Save(f)
	if err != nil {
		return analysis.NewAnalysis{}, "", errors.Wrap(err, "storing upload")
	}
	text, err := di.extractor.ExtractText(ctx.Request().Context(), f)
	if err != nil {
		return analysis.NewAnalysis{}, "", errors.Wrap(err, "extracting text")
	}

	na := analysis.NewAnalysis{
		UserID:   usr.ID,
		Filename: f.Filename,
		FilePath: path,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
	return na, document.TextOrNote(text, f.Filename), nil
}
