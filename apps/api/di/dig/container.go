package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/cems/apps/api/echo"
	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
	emailsvc "github.com/trezcool/cems/services/email"
	logsvc "github.com/trezcool/cems/services/logger"
	"github.com/trezcool/cems/storage/database"
	sqlxrepos "github.com/trezcool/cems/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type academicServiceParams struct {
	dig.In
	Conf     *core.Config
	Repo     academic.Repository
	Profiles *profile.Service
	Validate *validator.Validate
	Logger   core.Logger
	Mailer   core.EmailService
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newAcademicService(p academicServiceParams) *academic.Service {
	return academic.NewService(p.Repo, p.Profiles, p.Validate, p.Logger, academic.WithReports(p.Mailer, p.Conf.AdminEmails))
}

func newServerDeps(
	conf *core.Config,
	logger core.Logger,
	academicSvc *academic.Service,
	profileSvc *profile.Service,
	translator ut.Translator,
) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		AcademicSvc: academicSvc,
		ProfileSvc:  profileSvc,
		Translator:  translator,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewAcademicRepository))
	must(c.Provide(sqlxrepos.NewProfileRepository))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(profile.NewService))
	must(c.Provide(newAcademicService))
	must(c.Provide(newServerDeps))
	must(c.Provide(echoapi.NewServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
