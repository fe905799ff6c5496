package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool
		Logger         core.Logger
		Upload         core.UploadConfig
		// SignalShutdown is called when a handler returns a core shutdown error.
		SignalShutdown func()

		UserSvc        user.Service
		AnalysisSvc    analysis.Service
		VisaAnalyzer   analysis.VisaAnalyzer
		OfferLetterSvc offerletter.Service
		CoeSvc         coe.Service
		DestinationSvc destination.Service
		ScholarshipSvc scholarship.Service
		AppointmentSvc appointment.Service
		ChecklistSvc   checklist.Service
		Extractor      document.Extractor
		Store          document.Store
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := s.opts.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{core.Conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	g := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	admin := g.Group("/admin", jwt, staffMiddleware())

	registerUserAPI(g, admin, jwt, s.opts.UserSvc)
	registerAnalysisAPI(g, admin, jwt, s.opts)
	registerOfferLetterAPI(g, jwt, s.opts)
	registerCoeAPI(g, jwt, s.opts)
	registerDestinationAPI(g, jwt, s.opts.DestinationSvc)
	registerScholarshipAPI(g, admin, s.opts.ScholarshipSvc)
	registerAppointmentAPI(g, admin, jwt, s.opts.AppointmentSvc, s.opts.UserSvc)
	registerChecklistAPI(g, admin, s.opts.ChecklistSvc)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+core.Conf.AppName+" API!")
}
