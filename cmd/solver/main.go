package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/prep"
	"github.com/noah-isme/sma-adp-api/internal/repository"
	"github.com/noah-isme/sma-adp-api/internal/solver"
	"github.com/noah-isme/sma-adp-api/internal/store"
	"github.com/noah-isme/sma-adp-api/internal/validator"
	"github.com/noah-isme/sma-adp-api/pkg/config"
	"github.com/noah-isme/sma-adp-api/pkg/database"
	"github.com/noah-isme/sma-adp-api/pkg/logger"
)

// Exit codes per the solver's CLI surface: success, infeasible, unknown
// (timed out), and input error.
const (
	exitSuccess    = 0
	exitInfeasible = 1
	exitUnknown    = 2
	exitInputError = 3
)

func main() {
	week := pflag.Int("id_semaine", -1, "week identifier to solve (required)")
	timeBudget := pflag.Int("time_budget_seconds", 300, "CP backend time budget in seconds")
	workers := pflag.Int("workers", 8, "CP backend parallel worker count")
	pflag.Parse()

	if *week < 0 {
		fmt.Fprintln(os.Stderr, "id_semaine is required")
		os.Exit(exitInputError)
	}

	os.Exit(run(*week, *timeBudget, *workers))
}

func run(week, timeBudgetSeconds, workers int) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitInputError
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return exitInputError
	}
	defer log.Sync()

	if cfg.Configuration.ActiveTermID == "" {
		log.Error("no active term configured")
		return exitInputError
	}

	if err := config.RequireDatabaseEnv(); err != nil {
		log.Error("database connection not configured", zap.Error(err))
		return exitInputError
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Error("connect to database", zap.Error(err))
		return exitInputError
	}
	defer db.Close()

	ctx := context.Background()

	constraintStore, err := store.New(ctx, db, nil)
	if err != nil {
		log.Error("open constraint store", zap.Error(err))
		return exitInputError
	}

	val, err := validator.Load(ctx, constraintStore, week)
	if err != nil {
		log.Error("load constraint validator snapshot", zap.Error(err))
		return exitInputError
	}

	builder := prep.NewBuilder(
		repository.NewCourseRepository(db),
		repository.NewRoomRepository(db),
		repository.NewTeacherRepository(db),
		repository.NewPromotionRepository(db),
		repository.NewGroupRepository(db),
		repository.NewSubGroupRepository(db),
		repository.NewCourseEligibilityRepository(db),
		constraintStore,
		grid.DefaultConfig(),
	)

	data, err := builder.Build(ctx, cfg.Configuration.ActiveTermID, week, val)
	if err != nil {
		log.Error("build model data", zap.Error(err))
		return exitInputError
	}
	for _, w := range data.Warnings {
		log.Warn("data preparation warning", zap.String("detail", w))
	}

	opts := solver.Options{
		TimeBudgetSeconds: timeBudgetSeconds,
		Workers:           workers,
		Weights: solver.Weights{
			Forbidden: cfg.Scheduler.WeightForbiddenStart,
			Consec:    cfg.Scheduler.WeightOverConsecutive,
			Capacity:  cfg.Scheduler.WeightCapacityOverflow,
			Late:      cfg.Scheduler.WeightLateFinish,
		},
		MaxConsecutiveBlocks: cfg.Scheduler.MaxConsecutiveBlocks,
		LateStartThreshold:   cfg.Scheduler.LateStartThreshold,
	}

	result, err := solver.SolveWithOrTools(ctx, data, opts)
	if err != nil {
		log.Error("solve timetable model", zap.Error(err))
		return exitInputError
	}

	log.Info("solve finished",
		zap.String("status", string(result.Status)),
		zap.Int("assignments", len(result.Assignments)),
	)

	switch result.Status {
	case solver.StatusOptimal, solver.StatusFeasible:
		return exitSuccess
	case solver.StatusInfeasible:
		log.Warn("timetable infeasible", zap.Strings("over_committed_audiences", result.Diagnostics.OverCommittedAudiences))
		return exitInfeasible
	default:
		return exitUnknown
	}
}
