package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/offerletter"
)

const (
	analysisTable    = "analyses"
	offerLetterTable = "offer_letter_infos"
	coeTable         = "coe_infos"
)

var (
	analysisColumns = []string{
		"id", "user_id", "document_type", "filename", "file_path", "mime_type", "size",
		"summary", "results", "is_public", "created_at",
	}
	offerLetterColumns = []string{
		"id", "analysis_id", "user_id", "university", "program", "location", "country",
		"currency", "tuition_fee", "start_date", "results", "created_at",
	}
	coeColumns = []string{
		"id", "analysis_id", "user_id", "student_name", "provider", "cricos_code", "course",
		"start_date", "end_date", "tuition_fee", "results", "created_at",
	}
)

type analysisRow struct {
	ID           string         `db:"id"`
	UserID       null.String    `db:"user_id"`
	DocumentType string         `db:"document_type"`
	Filename     string         `db:"filename"`
	FilePath     string         `db:"file_path"`
	MimeType     string         `db:"mime_type"`
	Size         int64          `db:"size"`
	Summary      string         `db:"summary"`
	Results      types.JSONText `db:"results"`
	IsPublic     bool           `db:"is_public"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r analysisRow) analysis() analysis.Analysis {
	return analysis.Analysis{
		ID:           r.ID,
		UserID:       r.UserID.String,
		DocumentType: r.DocumentType,
		Filename:     r.Filename,
		FilePath:     r.FilePath,
		MimeType:     r.MimeType,
		Size:         r.Size,
		Summary:      r.Summary,
		Results:      json.RawMessage(r.Results),
		IsPublic:     r.IsPublic,
		CreatedAt:    r.CreatedAt,
	}
}

type offerLetterRow struct {
	ID         string         `db:"id"`
	AnalysisID string         `db:"analysis_id"`
	UserID     null.String    `db:"user_id"`
	University string         `db:"university"`
	Program    string         `db:"program"`
	Location   string         `db:"location"`
	Country    string         `db:"country"`
	Currency   string         `db:"currency"`
	TuitionFee float64        `db:"tuition_fee"`
	StartDate  string         `db:"start_date"`
	Results    types.JSONText `db:"results"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r offerLetterRow) info() (offerletter.Info, error) {
	info := offerletter.Info{
		ID:         r.ID,
		AnalysisID: r.AnalysisID,
		UserID:     r.UserID.String,
		University: r.University,
		Program:    r.Program,
		Location:   r.Location,
		Country:    r.Country,
		Currency:   r.Currency,
		TuitionFee: r.TuitionFee,
		StartDate:  r.StartDate,
		CreatedAt:  r.CreatedAt,
	}
	return info, errors.Wrap(r.Results.Unmarshal(&info.Results), "decoding offer letter results")
}

type coeRow struct {
	ID          string         `db:"id"`
	AnalysisID  string         `db:"analysis_id"`
	UserID      null.String    `db:"user_id"`
	StudentName string         `db:"student_name"`
	Provider    string         `db:"provider"`
	CricosCode  string         `db:"cricos_code"`
	Course      string         `db:"course"`
	StartDate   string         `db:"start_date"`
	EndDate     string         `db:"end_date"`
	TuitionFee  float64        `db:"tuition_fee"`
	Results     types.JSONText `db:"results"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (r coeRow) info() (coe.Info, error) {
	info := coe.Info{
		ID:          r.ID,
		AnalysisID:  r.AnalysisID,
		UserID:      r.UserID.String,
		StudentName: r.StudentName,
		Provider:    r.Provider,
		CricosCode:  r.CricosCode,
		Course:      r.Course,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		TuitionFee:  r.TuitionFee,
		CreatedAt:   r.CreatedAt,
	}
	return info, errors.Wrap(r.Results.Unmarshal(&info.Results), "decoding coe results")
}

// analysisRepository serves the generic analyses and their type specific records.
type analysisRepository struct {
	db core.DB
}

var (
	_ analysis.Repository    = (*analysisRepository)(nil)
	_ offerletter.Repository = (*analysisRepository)(nil)
	_ coe.Repository         = (*analysisRepository)(nil)
)

func NewAnalysisRepository(db core.DB) analysis.Repository {
	return &analysisRepository{db: db}
}

func NewOfferLetterRepository(db core.DB) offerletter.Repository {
	return &analysisRepository{db: db}
}

func NewCoeRepository(db core.DB) coe.Repository {
	return &analysisRepository{db: db}
}

func nullID(id string) null.String {
	return null.NewString(id, id != "")
}

func insertAnalysis(ctx context.Context, exec core.DBExecutor, a analysis.Analysis) (analysis.Analysis, error) {
	a.ID = uuid.New().String()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	results := types.JSONText(a.Results)
	if len(results) == 0 {
		results = types.JSONText("{}")
	}
	_, err := execStmt(ctx, exec, psql.Insert(analysisTable).SetMap(map[string]interface{}{
		"id":            a.ID,
		"user_id":       nullID(a.UserID),
		"document_type": a.DocumentType,
		"filename":      a.Filename,
		"file_path":     a.FilePath,
		"mime_type":     a.MimeType,
		"size":          a.Size,
		"summary":       a.Summary,
		"results":       results,
		"is_public":     a.IsPublic,
		"created_at":    a.CreatedAt.UTC(),
	}))
	if err != nil {
		return analysis.Analysis{}, errors.Wrap(err, "inserting analysis")
	}
	return a, nil
}

func (repo *analysisRepository) CreateAnalysis(ctx context.Context, a analysis.Analysis) (analysis.Analysis, error) {
	return insertAnalysis(ctx, repo.db, a)
}

func (repo *analysisRepository) GetAnalysis(ctx context.Context, id string) (analysis.Analysis, error) {
	if !isUUID(id) {
		return analysis.Analysis{}, analysis.ErrNotFound
	}
	var row analysisRow
	b := psql.Select(analysisColumns...).From(analysisTable).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.db, &row, b); err != nil {
		return analysis.Analysis{}, trapNoRowsErr(err, analysis.ErrNotFound, "finding analysis")
	}
	return row.analysis(), nil
}

func (repo *analysisRepository) QueryAnalyses(ctx context.Context, filter analysis.QueryFilter, ordering []core.DBOrdering) ([]analysis.Analysis, error) {
	b := psql.Select(analysisColumns...).From(analysisTable)
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return []analysis.Analysis{}, nil
		}
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.DocumentType != "" {
		b = b.Where(sq.Eq{"document_type": filter.DocumentType})
	}
	if filter.Search != "" {
		val := contains(filter.Search)
		b = b.Where(sq.Or{sq.ILike{"filename": val}, sq.ILike{"summary": val}})
	}
	if !filter.CreatedFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		b = b.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}

	var rows []analysisRow
	if err := selectRows(ctx, repo.db, &rows, orderBy(b, ordering)); err != nil {
		return nil, errors.Wrap(err, "querying analyses")
	}
	list := make([]analysis.Analysis, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.analysis())
	}
	return list, nil
}

func (repo *analysisRepository) CountAnalyses(ctx context.Context, since time.Time) (map[string]int, error) {
	var rows []struct {
		DocumentType string `db:"document_type"`
		N            int    `db:"n"`
	}
	b := psql.Select("document_type", "COUNT(*) AS n").From(analysisTable).
		Where(sq.GtOrEq{"created_at": since.UTC()}).
		GroupBy("document_type")
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "counting analyses")
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.DocumentType] = r.N
	}
	return counts, nil
}

// DeleteAnalysesByID relies on ON DELETE CASCADE to remove the type specific records.
func (repo *analysisRepository) DeleteAnalysesByID(ctx context.Context, ids []string) (int, error) {
	n, err := execStmt(ctx, repo.db, psql.Delete(analysisTable).Where(sq.Eq{"id": validIDs(ids)}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting analyses")
	}
	return n, nil
}

// Offer letters

func (repo *analysisRepository) CreateOfferLetterAnalysis(ctx context.Context, a analysis.Analysis, info offerletter.Info) (analysis.Analysis, offerletter.Info, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if a, err = insertAnalysis(ctx, tx, a); err != nil {
			return err
		}
		info.ID = uuid.New().String()
		info.AnalysisID = a.ID
		info.UserID = a.UserID
		info.CreatedAt = a.CreatedAt

		results, err := jsonText(info.Results)
		if err != nil {
			return err
		}
		_, err = execStmt(ctx, tx, psql.Insert(offerLetterTable).SetMap(map[string]interface{}{
			"id":          info.ID,
			"analysis_id": info.AnalysisID,
			"user_id":     nullID(info.UserID),
			"university":  info.University,
			"program":     info.Program,
			"location":    info.Location,
			"country":     info.Country,
			"currency":    info.Currency,
			"tuition_fee": info.TuitionFee,
			"start_date":  info.StartDate,
			"results":     results,
			"created_at":  info.CreatedAt.UTC(),
		}))
		return errors.Wrap(err, "inserting offer letter info")
	})
	if err != nil {
		return analysis.Analysis{}, offerletter.Info{}, err
	}
	return a, info, nil
}

func (repo *analysisRepository) GetOfferLetterInfo(ctx context.Context, analysisID string) (offerletter.Info, error) {
	if !isUUID(analysisID) {
		return offerletter.Info{}, offerletter.ErrNotFound
	}
	var row offerLetterRow
	b := psql.Select(offerLetterColumns...).From(offerLetterTable).Where(sq.Eq{"analysis_id": analysisID})
	if err := getRow(ctx, repo.db, &row, b); err != nil {
		return offerletter.Info{}, trapNoRowsErr(err, offerletter.ErrNotFound, "finding offer letter info")
	}
	return row.info()
}

func (repo *analysisRepository) QueryOfferLetterInfos(ctx context.Context, userID string) ([]offerletter.Info, error) {
	b := psql.Select(offerLetterColumns...).From(offerLetterTable).OrderBy("created_at DESC")
	if userID != "" {
		if !isUUID(userID) {
			return []offerletter.Info{}, nil
		}
		b = b.Where(sq.Eq{"user_id": userID})
	}
	var rows []offerLetterRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying offer letter infos")
	}
	list := make([]offerletter.Info, 0, len(rows))
	for _, r := range rows {
		info, err := r.info()
		if err != nil {
			return nil, err
		}
		list = append(list, info)
	}
	return list, nil
}

// COEs

func (repo *analysisRepository) CreateCoeAnalysis(ctx context.Context, a analysis.Analysis, info coe.Info) (analysis.Analysis, coe.Info, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		if a, err = insertAnalysis(ctx, tx, a); err != nil {
			return err
		}
		info.ID = uuid.New().String()
		info.AnalysisID = a.ID
		info.UserID = a.UserID
		info.CreatedAt = a.CreatedAt

		results, err := jsonText(info.Results)
		if err != nil {
			return err
		}
		_, err = execStmt(ctx, tx, psql.Insert(coeTable).SetMap(map[string]interface{}{
			"id":           info.ID,
			"analysis_id":  info.AnalysisID,
			"user_id":      nullID(info.UserID),
			"student_name": info.StudentName,
			"provider":     info.Provider,
			"cricos_code":  info.CricosCode,
			"course":       info.Course,
			"start_date":   info.StartDate,
			"end_date":     info.EndDate,
			"tuition_fee":  info.TuitionFee,
			"results":      results,
			"created_at":   info.CreatedAt.UTC(),
		}))
		return errors.Wrap(err, "inserting coe info")
	})
	if err != nil {
		return analysis.Analysis{}, coe.Info{}, err
	}
	return a, info, nil
}

func (repo *analysisRepository) GetCoeInfo(ctx context.Context, analysisID string) (coe.Info, error) {
	if !isUUID(analysisID) {
		return coe.Info{}, coe.ErrNotFound
	}
	var row coeRow
	b := psql.Select(coeColumns...).From(coeTable).Where(sq.Eq{"analysis_id": analysisID})
	if err := getRow(ctx, repo.db, &row, b); err != nil {
		return coe.Info{}, trapNoRowsErr(err, coe.ErrNotFound, "finding coe info")
	}
	return row.info()
}

func (repo *analysisRepository) QueryCoeInfos(ctx context.Context, userID string) ([]coe.Info, error) {
	b := psql.Select(coeColumns...).From(coeTable).OrderBy("created_at DESC")
	if userID != "" {
		if !isUUID(userID) {
			return []coe.Info{}, nil
		}
		b = b.Where(sq.Eq{"user_id": userID})
	}
	var rows []coeRow
	if err := selectRows(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying coe infos")
	}
	list := make([]coe.Info, 0, len(rows))
	for _, r := range rows {
		info, err := r.info()
		if err != nil {
			return nil, err
		}
		list = append(list, info)
	}
	return list, nil
}
