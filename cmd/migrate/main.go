package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/partyhub-backend/pkg/config"
	"github.com/angelmondragon/partyhub-backend/pkg/db"
	"github.com/angelmondragon/partyhub-backend/pkg/logger"
	"github.com/angelmondragon/partyhub-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|to|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the set embedded in the binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("target", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	// create and validate work on files only and never need config or a database.
	switch *cmd {
	case "create":
		out := *dir
		if out == "" {
			out = migrate.DefaultDir
		}
		path, err := migrate.Create(out, *name, time.Now())
		exitOn(err, "create migration")
		fmt.Println("created", path)
		return
	case "validate":
		exitOn(migrate.Validate(migrate.Source(*dir)), "validate migrations")
		fmt.Println("migrations valid")
		return
	}

	cfg, err := config.Load()
	exitOn(err, "load config")

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Environment: cfg.App.Env,
		Format:      cfg.App.LogFormat,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": *cmd, "dir": *dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(err, "connect database")
	defer dbClient.Close()

	if cfg.DB.Driver == config.DBDriverSQLite {
		if *cmd != "up" {
			exitOn(fmt.Errorf("sqlite only supports -cmd=up"), "migrate")
		}
		exitOn(migrate.AutoMigrateSQLite(ctx, logg, dbClient), "sqlite automigrate")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	exitOn(err, "sql handle")
	runner, err := migrate.NewRunner(sqlDB, migrate.Source(*dir))
	exitOn(err, "migration runner")

	var applied []migrate.Applied
	switch *cmd {
	case "up":
		applied, err = runner.Up(ctx)
	case "down":
		applied, err = runner.Down(ctx)
	case "to":
		var version int64
		version, err = strconv.ParseInt(*target, 10, 64)
		if err == nil {
			applied, err = runner.To(ctx, version)
		}
	case "version":
		var version int64
		version, err = runner.Version(ctx)
		if err == nil {
			fmt.Println(version)
		}
	case "status":
		var states []migrate.State
		states, err = runner.Status(ctx)
		for _, st := range states {
			mark := "pending"
			if st.Applied {
				mark = st.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%d  %-24s %s\n", st.Version, mark, st.Path)
		}
	default:
		err = fmt.Errorf("unknown -cmd %q", *cmd)
	}
	exitOn(err, *cmd)

	for _, step := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     step.Version,
			"direction":   step.Direction,
			"duration_ms": step.Duration.Milliseconds(),
		}), "migrate.applied")
	}
}

func exitOn(err error, what string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}
