package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	"github.com/trezcool/cems/core/profile"
	appfs "github.com/trezcool/cems/fs"
	emailsvc "github.com/trezcool/cems/services/email"
	logsvc "github.com/trezcool/cems/services/logger"
	"github.com/trezcool/cems/storage/database"
	sqlxrepos "github.com/trezcool/cems/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug); err != nil {
		logger.Fatal("parsing email templates", err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), validate)

	// start CLI
	cli := commandLine{
		migrator: func(command string, args ...string) error {
			return database.Migrate(db.DB, command, args...)
		},
		academics: academic.NewService(
			sqlxrepos.NewAcademicRepository(db), profileSvc, validate, logger,
			academic.WithReports(mailSvc, conf.AdminEmails),
		),
		mailer:     mailSvc,
		translator: translator,
		in:         os.Stdin,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
