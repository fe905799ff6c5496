package main

import (
	"context"
	"fmt"
	"os"

	"github.com/darpanintel/darpan/core"
	"github.com/darpanintel/darpan/core/scholarship"
	logsvc "github.com/darpanintel/darpan/services/logger"
	"github.com/darpanintel/darpan/storage/database"
	sqlxrepos "github.com/darpanintel/darpan/storage/database/sqlx"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	conf := core.Conf
	logger = logsvc.NewRollbarLogger("ADMIN", conf)

	// set up DB
	errAndDie(database.CreateIfNotExist(context.Background(), conf))
	db, err := database.Open(conf)
	errAndDie(err)
	//goland:noinspection GoUnhandledErrorResult
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		schSvc:  scholarship.NewService(sqlxrepos.NewScholarshipRepository(db), logger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
