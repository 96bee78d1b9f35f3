package main

import (
	"log"
	"os"

	logsvc "github.com/trezcool/darasa/services/logger"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/section"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db: db,
		secSvc: section.NewService(
			database.NewAtomizer(db),
			sqlxrepos.NewSectionRepository(db),
			sqlxrepos.NewEnrollmentRepository(db),
			sqlxrepos.NewUserRepository(db),
			sqlxrepos.NewCourseRepository(db),
			nil, /* mail */
			svcLogger,
			conf,
		),
		plan: section.PlanConfig{
			Recommended: conf.Class.RecommendedSize,
			HardMax:     conf.Class.MaxSize,
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
