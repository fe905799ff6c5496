package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the debug server

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/darpanintel/darpan/apps/api/echo"
	"github.com/darpanintel/darpan/core"
)

type appParams struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	CloseDB  closeFunc
	Shutdown shutdownChan
	Server   echoapi.Server
}

func main() {
	c := newContainer()
	if err := c.Invoke(run); err != nil {
		newLogger(core.Conf).Fatal(fmt.Sprintf("starting application: %v", dig.RootCause(err)), err)
	}
}

func run(p appParams) {
	conf, logger := p.Conf, p.Logger

	defer func() {
		if err := p.CloseDB(); err != nil {
			p.DBLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(storageName(conf))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- p.Server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if errors.Cause(err) != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-p.Shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := p.Server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func storageName(conf *core.Config) string {
	if conf.Server.InMemory {
		return "memory"
	}
	return conf.Database.Engine
}
