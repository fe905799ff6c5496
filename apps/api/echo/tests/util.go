package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/darpanintel/darpan/apps/api/echo"
	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/analysis"
	"github.com/darpanintel/darpan/core/appointment"
	"github.com/darpanintel/darpan/core/checklist"
	"github.com/darpanintel/darpan/core/coe"
	"github.com/darpanintel/darpan/core/destination"
	"github.com/darpanintel/darpan/core/document"
	"github.com/darpanintel/darpan/core/offerletter"
	"github.com/darpanintel/darpan/core/scholarship"
	"github.com/darpanintel/darpan/core/user"
	"github.com/darpanintel/darpan/services/email"
	"github.com/darpanintel/darpan/services/llm"
	"github.com/darpanintel/darpan/services/logger"
	"github.com/darpanintel/darpan/storage/database/inmem"
)

const (
	visaAnswer  = `{"summary": "Your student visa was refused.", "outcome": "refused", "country": "Australia", "visaType": "Subclass 500"}`
	offerAnswer = `{"summary": "Unconditional offer for a Master of IT.", "universityInfo": {"name": "University of Sydney", "country": "Australia"}}`
	coeAnswer   = `{"summary": "CoE for a Master of IT.", "studentName": "Asha Rai", "providerName": "University of Sydney"}`
	destAnswer  = `{"summary": "Australia fits your profile.", "suggestions": [{"country": "Australia", "matchScore": 88}]}`
)

var (
	usrRepo  user.Repository
	apptRepo appointment.Repository
	store    *memStore

	errMissingToken = httpErr{Error: "missing or malformed jwt"}

	uploadConf = core.UploadConfig{
		MaxSize:      1 << 10, // 1KB
		AllowedTypes: []string{"application/pdf", "text/plain"},
	}
)

// memStore keeps uploads in memory.
type memStore struct {
	mu    sync.Mutex
	files []document.File
}

func (s *memStore) Save(f document.File) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, f)
	return "/uploads/" + f.Filename, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// fakeLLM answers each prompt family with a canned JSON document.
func fakeLLM() core.LLMService {
	return llmsvc.NewServiceMock(func(_ context.Context, req core.ChatRequest) (string, error) {
		switch {
		case strings.Contains(req.System, "visa decision letters"):
			return visaAnswer, nil
		case strings.Contains(req.System, "offer letters"):
			return offerAnswer, nil
		case strings.Contains(req.System, "Confirmation of Enrolment"):
			return coeAnswer, nil
		case strings.Contains(req.System, "study destinations"):
			return destAnswer, nil
		}
		return `{"scholarships": []}`, nil
	})
}

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	apptRepo = inmemdb.NewAppointmentRepository(db)
	store = new(memStore)

	// set up services
	log := logsvc.NewLogger("TEST", new(bytes.Buffer))
	mailSvc := emailsvc.NewConsoleServiceMock()
	emailsvc.ResetSentMessages()
	llm := fakeLLM()

	schSvc := scholarship.NewService(inmemdb.NewScholarshipRepository(db), log)
	researcher := scholarship.NewResearcher(schSvc, llm, core.Conf.OpenAI.ResearchTimeout, log)

	// set up server
	return NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         log,
			Upload:         uploadConf,
			SignalShutdown: func() {},

			UserSvc:        user.NewService(usrRepo, mailSvc, log),
			AnalysisSvc:    analysis.NewService(inmemdb.NewAnalysisRepository(db), mailSvc, log),
			VisaAnalyzer:   analysis.NewVisaAnalyzer(llm, 4000, log),
			OfferLetterSvc: offerletter.NewService(inmemdb.NewOfferLetterRepository(db), offerletter.NewAnalyzer(llm, researcher, 4000, log)),
			CoeSvc:         coe.NewService(inmemdb.NewCoeRepository(db), coe.NewAnalyzer(llm, 4000, log)),
			DestinationSvc: destination.NewService(llm, researcher, log),
			ScholarshipSvc: schSvc,
			AppointmentSvc: appointment.NewService(apptRepo, mailSvc, log),
			ChecklistSvc:   checklist.NewService(inmemdb.NewChecklistRepository(db), log),
			Extractor:      document.NewExtractor(llm, log),
			Store:          store,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request; an empty filename sends no "file" part.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
