package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/section"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db     *sqlx.DB
	secSvc *section.Service
	plan   section.PlanConfig
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS...] - run database migrations")
	fmt.Println("  plan -total N [-recommended N] [-max N] - preview section capacities for N students")
	fmt.Println("  synccounts -course COURSE_ID - recompute section enrollment counts for a course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	planTotal := planCmd.Int("total", -1, "Total number of students to place.")
	planRecommended := planCmd.Int("recommended", cli.plan.Recommended, "Preferred section size.")
	planMax := planCmd.Int("max", cli.plan.HardMax, "Section size ceiling.")

	syncCmd := flag.NewFlagSet("synccounts", flag.ExitOnError)
	syncCourse := syncCmd.String("course", "", "The course whose section counts to recompute.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "plan":
		if err := planCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *planTotal < 0 {
			planCmd.Usage()
			return errHelp
		}
		return cli.printPlan(*planTotal, section.PlanConfig{Recommended: *planRecommended, HardMax: *planMax})
	case "synccounts":
		if err := syncCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *syncCourse == "" {
			syncCmd.Usage()
			return errHelp
		}
		return cli.syncCounts(*syncCourse)
	default:
		cli.printUsage()
		return errHelp
	}
}
