package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"expensetracker/internal/alarm"
	"expensetracker/internal/config"
	"expensetracker/internal/database"
	"expensetracker/internal/events"
	"expensetracker/internal/expenses"
	"expensetracker/internal/reminders"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "expensetracker",
	Short:         "Record expenses and get a daily reminder to log them",
	Long:          `Expense tracker with a daily reminder. Run "expensetracker serve" to keep the reminder firing.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default $EXPENSE_CONFIG_PATH or configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
}

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zerolog.Logger
	db        *database.DB
	rdb       *redis.Client
	prefs     *database.PreferenceStore
	perms     *alarm.Permissions
	registry  alarm.Registry
	alarms    *alarm.Service
	scheduler *reminders.Scheduler
	settings  *reminders.Settings
	bus       *events.EventBus
	store     *expenses.Store
}

func newLogger(level zerolog.Level) *zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &logger
}

// newApp loads the configuration and opens storage. defaultLevel is used
// unless --verbose or debug mode asks for more.
func newApp(ctx context.Context, defaultLevel zerolog.Level) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := defaultLevel
	if verbose || cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := newLogger(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	switch cfg.Alarm.Backend {
	case "redis":
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Address, err)
		}
		a.registry = alarm.NewRedisRegistry(a.rdb)
	default:
		a.registry = database.NewAlarmRegistry(db)
	}

	a.prefs = database.NewPreferenceStore(db, logger)
	a.perms = alarm.NewPermissions(a.prefs, logger)
	a.alarms = alarm.NewService(a.registry, a.perms, logger)
	a.scheduler = reminders.NewScheduler(a.alarms, loc, logger)
	a.settings = reminders.NewSettings(a.prefs, a.scheduler, a.perms, logger)
	a.bus = events.NewEventBus(logger)
	a.store = expenses.NewStore(db, a.bus, logger)
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// withApp runs fn with a ready app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, zerolog.WarnLevel)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
