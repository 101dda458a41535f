package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"expensetracker/internal/alarm"
	"expensetracker/internal/database"
	"expensetracker/internal/events"
	"expensetracker/internal/metrics"
	"expensetracker/internal/notify"
	"expensetracker/internal/power"
	"expensetracker/internal/reminders"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder daemon",
	Long: `Run the reminder daemon. It re-arms the reminder on start, fires pending
wake-ups, follows settings changed from other commands and serves health
and metrics endpoints.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, zerolog.InfoLevel)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.cfg.Validate(); err != nil {
			return err
		}
		return runDaemon(ctx, a)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runDaemon(ctx context.Context, a *app) error {
	logger := a.logger

	notifier, err := newNotifier(a)
	if err != nil {
		return err
	}
	presenter := notify.NewPresenter(
		notifier,
		notify.NewCommandPlayer(a.cfg.Reminder.PlayerCommand, a.cfg.Reminder.DefaultSound, logger),
		notify.NewLogVibrator(logger),
		logger,
	)

	locks := power.NewManager(logger)
	handler := reminders.NewAlarmHandler(
		&reminders.HandlerConfig{
			Title:           a.cfg.Reminder.Title,
			Body:            a.cfg.Reminder.Body,
			Vibration:       a.cfg.VibrationPattern(),
			WakeLockTimeout: a.cfg.WakeLockTimeout(),
		},
		a.prefs,
		a.scheduler,
		presenter,
		notify.NewSoundResolver(a.cfg.Reminder.SoundsDir),
		a.perms,
		func() reminders.WakeLock { return locks.NewWakeLock(reminders.WakeLockTag) },
		logger,
	)

	dispatcher := alarm.NewDispatcher(a.registry, a.cfg.AlarmTick(), logger)
	dispatcher.Handle(reminders.ReminderToken, handler)
	a.alarms.OnChange(dispatcher.Poke)

	// Pending wake-ups do not survive a restart of the host.
	if err := a.alarms.Reboot(ctx); err != nil {
		return fmt.Errorf("reset alarms: %w", err)
	}
	if sched, err := reminders.NewBootHandler(a.prefs, a.scheduler, logger).Handle(ctx, reminders.BootCompleted); err != nil {
		logger.Error().Err(err).Msg("failed to re-arm reminder on start")
	} else if sched != nil {
		logger.Info().Time("fire_at", sched.FireAt).Str("precision", string(sched.Precision)).Msg("reminder re-armed")
	}

	reconciler := reminders.NewReconciler(a.prefs, a.scheduler, a.perms, logger)
	defer reconciler.Follow(ctx, a.bus, dispatcher.Poke)()
	if err := reminders.WatchPreferences(ctx, a.prefs, a.cfg.PrefsPollInterval(), logger, func(context.Context) {
		a.bus.Publish(events.Event{Type: events.PreferencesChanged})
	}); err != nil {
		logger.Error().Err(err).Msg("preferences watch failed")
	}

	go database.NewBackupService(a.db, a.cfg.Database.Backup, logger).Start(ctx)

	go startOpsServer(ctx, a.cfg.Monitoring.HealthCheckPort, newOpsRouter(a, dispatcher, locks), logger)

	if a.cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, a.cfg.Monitoring.PrometheusPort, logger)
	}

	logger.Info().Str("backend", a.cfg.Alarm.Backend).Msg("reminder daemon started")
	dispatcher.Start(ctx)
	return nil
}

// newNotifier sends notifications to Telegram when a bot token is set and
// to the log otherwise.
func newNotifier(a *app) (notify.Notifier, error) {
	tg := a.cfg.Telegram
	if tg.BotToken == "" {
		return notify.NewLogNotifier(a.logger), nil
	}
	bot, err := tgbotapi.NewBotAPI(tg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = a.cfg.Debug
	a.logger.Info().Str("account", bot.Self.UserName).Msg("notifications go to telegram")
	return notify.NewTelegramNotifier(bot, tg.ChatID, tg.RatePerSecond, tg.Burst, a.logger), nil
}
