package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/cems/apps/api/echo"
	"github.com/trezcool/cems/core"
	"github.com/trezcool/cems/core/academic"
	appfs "github.com/trezcool/cems/fs"
)

func main() {
	di := flag.String("di", "dig", "how dependencies are wired: dig | manual")
	flag.Parse()

	switch *di {
	case "manual":
		startManual()
	default:
		startWithDig()
	}
}

// initApp registers the validators and loads the email templates.
func initApp(conf *core.Config, logger core.Logger, validate *validator.Validate, translator ut.Translator) {
	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	core.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)

	if err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf.Debug); err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
}

// serve runs the debug & API servers until the API server fails or is asked to shut down.
func serve(conf *core.Config, logger core.Logger, server *echoapi.Server) {
	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
