package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/darpanintel/darpan/apps/api/echo"
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
	emailsvc "github.com/darpanintel/darpan/services/email"
	llmsvc "github.com/darpanintel/darpan/services/llm"
	logsvc "github.com/darpanintel/darpan/services/logger"
	"github.com/darpanintel/darpan/storage/database"
	inmemdb "github.com/darpanintel/darpan/storage/database/inmem"
	sqlxrepos "github.com/darpanintel/darpan/storage/database/sqlx"
)

type dbLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type closeFunc func() error

type shutdownChan chan os.Signal

// repositories is resolved as a whole because the backend is picked at runtime.
type repositories struct {
	dig.Out

	Close       closeFunc
	User        user.Repository
	Analysis    analysis.Repository
	OfferLetter offerletter.Repository
	Coe         coe.Repository
	Scholarship scholarship.Repository
	Appointment appointment.Repository
	Checklist   checklist.Repository
}

type serverParams struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	Shutdown shutdownChan

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

func newConfig() *core.Config {
	return core.Conf
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger("API", conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger("DB", conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newRepositories opens the configured storage; server.inMemory swaps PostgreSQL for the in-memory backend.
func newRepositories(conf *core.Config, p dbLoggerParam) (repositories, error) {
	if conf.Server.InMemory {
		p.Logger.Info("using in-memory storage")
		db := inmemdb.Open()
		return repositories{
			Close:       func() error { return nil },
			User:        inmemdb.NewUserRepository(db),
			Analysis:    inmemdb.NewAnalysisRepository(db),
			OfferLetter: inmemdb.NewOfferLetterRepository(db),
			Coe:         inmemdb.NewCoeRepository(db),
			Scholarship: inmemdb.NewScholarshipRepository(db),
			Appointment: inmemdb.NewAppointmentRepository(db),
			Checklist:   inmemdb.NewChecklistRepository(db),
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, errors.Wrap(err, "setting up database")
	}
	return repositories{
		Close:       db.Close,
		User:        sqlxrepos.NewUserRepository(db),
		Analysis:    sqlxrepos.NewAnalysisRepository(db),
		OfferLetter: sqlxrepos.NewOfferLetterRepository(db),
		Coe:         sqlxrepos.NewCoeRepository(db),
		Scholarship: sqlxrepos.NewScholarshipRepository(db),
		Appointment: sqlxrepos.NewAppointmentRepository(db),
		Checklist:   sqlxrepos.NewChecklistRepository(db),
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newResearcher(conf *core.Config, svc scholarship.Service, llm core.LLMService, logger core.Logger) scholarship.Researcher {
	return scholarship.NewResearcher(svc, llm, conf.OpenAI.ResearchTimeout, logger)
}

func newVisaAnalyzer(conf *core.Config, llm core.LLMService, logger core.Logger) analysis.VisaAnalyzer {
	return analysis.NewVisaAnalyzer(llm, conf.OpenAI.MaxDocumentChars, logger)
}

func newOfferLetterAnalyzer(conf *core.Config, llm core.LLMService, researcher scholarship.Researcher, logger core.Logger) offerletter.Analyzer {
	return offerletter.NewAnalyzer(llm, researcher, conf.OpenAI.MaxDocumentChars, logger)
}

func newCoeAnalyzer(conf *core.Config, llm core.LLMService, logger core.Logger) coe.Analyzer {
	return coe.NewAnalyzer(llm, conf.OpenAI.MaxDocumentChars, logger)
}

func newStore(conf *core.Config) document.Store {
	return document.NewDiskStore(conf.Upload.Dir)
}

func newShutdownChan() shutdownChan {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(&echoapi.Options{
		Address: p.Conf.Server.Address,
		Debug:   p.Conf.Debug,
		Logger:  p.Logger,
		Upload:  p.Conf.Upload,
		SignalShutdown: func() {
			select {
			case p.Shutdown <- syscall.SIGTERM:
			default:
			}
		},

		UserSvc:        p.UserSvc,
		AnalysisSvc:    p.AnalysisSvc,
		VisaAnalyzer:   p.VisaAnalyzer,
		OfferLetterSvc: p.OfferLetterSvc,
		CoeSvc:         p.CoeSvc,
		DestinationSvc: p.DestinationSvc,
		ScholarshipSvc: p.ScholarshipSvc,
		AppointmentSvc: p.AppointmentSvc,
		ChecklistSvc:   p.ChecklistSvc,
		Extractor:      p.Extractor,
		Store:          p.Store,
	})
}

// newContainer returns the dependency injection dig.Container of the API.
func newContainer(opts ...dig.Option) *dig.Container {
	c := dig.New(opts...)

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(llmsvc.NewOpenAIService))
	must(c.Provide(newShutdownChan))

	must(c.Provide(user.NewService))
	must(c.Provide(analysis.NewService))
	must(c.Provide(newVisaAnalyzer))
	must(c.Provide(scholarship.NewService))
	must(c.Provide(newResearcher))
	must(c.Provide(newOfferLetterAnalyzer))
	must(c.Provide(offerletter.NewService))
	must(c.Provide(newCoeAnalyzer))
	must(c.Provide(coe.NewService))
	must(c.Provide(destination.NewService))
	must(c.Provide(appointment.NewService))
	must(c.Provide(checklist.NewService))
	must(c.Provide(document.NewExtractor))
	must(c.Provide(newStore))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
