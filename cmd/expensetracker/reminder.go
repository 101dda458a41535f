package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"expensetracker/internal/alarm"
	"expensetracker/internal/models"
	"expensetracker/internal/reminders"
	"expensetracker/internal/viewmodel"

	"github.com/spf13/cobra"
)

var (
	reminderSound     string
	reminderVibration bool
	reminderAssumeYes bool
	reminderAssumeNo  bool
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Configure the daily reminder",
}

var reminderShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the reminder settings and the pending wake-up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			cfg, err := a.prefs.Get(ctx)
			if err != nil {
				return err
			}
			pending, err := a.scheduler.Pending(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Enabled:    %t\n", cfg.Enabled)
			fmt.Fprintf(out, "Time:       %s\n", cfg.TimeOfDay())
			sound := cfg.SoundRef
			if !cfg.HasCustomSound() {
				sound = "default"
			}
			fmt.Fprintf(out, "Sound:      %s\n", sound)
			fmt.Fprintf(out, "Vibration:  %t\n", cfg.VibrationEnabled)
			fmt.Fprintf(out, "Exact:      %t\n", a.scheduler.CanUseExactTiming(ctx))
			fmt.Fprintf(out, "Notify:     %t\n", a.perms.CanPostNotifications(ctx))
			if pending != nil {
				fmt.Fprintf(out, "Next:       %s (%s)\n", pending.FireAt.In(a.scheduler.Location()).Format("2006-01-02 15:04"), pending.Precision)
			} else {
				fmt.Fprintln(out, "Next:       none")
			}
			return nil
		})
	},
}

var reminderSetCmd = &cobra.Command{
	Use:   "set <HH:MM>",
	Short: "Enable the reminder at the given time of day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hour, minute, err := models.ParseTimeOfDay(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if cmd.Flags().Changed("sound") || cmd.Flags().Changed("vibration") {
				cfg, err := a.prefs.Get(ctx)
				if err != nil {
					return err
				}
				sound, vibration := cfg.SoundRef, cfg.VibrationEnabled
				if cmd.Flags().Changed("sound") {
					sound = reminderSound
				}
				if cmd.Flags().Changed("vibration") {
					vibration = reminderVibration
				}
				if _, err := a.settings.UpdatePresentation(ctx, sound, vibration); err != nil {
					return err
				}
			}
			return changeReminder(ctx, cmd, a, true, hour, minute)
		})
	},
}

var reminderEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the reminder at the stored time of day",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			cfg, err := a.prefs.Get(ctx)
			if err != nil {
				return err
			}
			return changeReminder(ctx, cmd, a, true, cfg.Hour, cfg.Minute)
		})
	},
}

var reminderDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the reminder and cancel the pending wake-up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			cfg, err := a.prefs.Get(ctx)
			if err != nil {
				return err
			}
			return changeReminder(ctx, cmd, a, false, cfg.Hour, cfg.Minute)
		})
	},
}

var reminderPermissionCmd = &cobra.Command{
	Use:       "permission <notifications|exact> <grant|revoke>",
	Short:     "Grant or revoke a reminder permission",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"notifications", "exact"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		switch args[0] {
		case "notifications":
			key = alarm.PermissionPostNotifications
		case "exact":
			key = alarm.PermissionExactAlarm
		default:
			return fmt.Errorf("unknown permission %q", args[0])
		}

		var granted bool
		switch args[1] {
		case "grant":
			granted = true
		case "revoke":
		default:
			return fmt.Errorf("expected grant or revoke, got %q", args[1])
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.perms.Set(ctx, key, granted); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Permission %s: %t\n", args[0], granted)
			return nil
		})
	},
}

func init() {
	reminderSetCmd.Flags().StringVar(&reminderSound, "sound", "", `Sound file name, path or file:// URI ("" for the default sound)`)
	reminderSetCmd.Flags().BoolVar(&reminderVibration, "vibration", true, "Vibrate with the notification")
	for _, c := range []*cobra.Command{reminderSetCmd, reminderEnableCmd} {
		c.Flags().BoolVarP(&reminderAssumeYes, "yes", "y", false, "Allow notifications without asking")
		c.Flags().BoolVar(&reminderAssumeNo, "no", false, "Refuse notifications without asking")
	}

	reminderCmd.AddCommand(reminderShowCmd, reminderSetCmd, reminderEnableCmd, reminderDisableCmd, reminderPermissionCmd)
	rootCmd.AddCommand(reminderCmd)
}

// changeReminder applies the settings through the view-model and answers
// the notification permission prompt when one is raised.
func changeReminder(ctx context.Context, cmd *cobra.Command, a *app, enabled bool, hour, minute int) error {
	vm := viewmodel.NewExpenseViewModel(a.store, a.settings, models.ReminderConfig{Enabled: enabled, Hour: hour, Minute: minute}, a.logger)
	defer vm.Close()

	vm.ChangeReminder(enabled, hour, minute)
	vm.Flush()

	if vm.State().Reminder.NeedsNotificationPermission {
		granted := askYesNo(cmd.InOrStdin(), cmd.OutOrStdout(), "Allow notifications for the daily reminder? [y/N] ")
		vm.NotificationPermissionResult(granted)
		vm.Flush()
	}

	printReminderState(cmd.OutOrStdout(), vm.State().Reminder)
	return nil
}

func askYesNo(in io.Reader, out io.Writer, prompt string) bool {
	switch {
	case reminderAssumeYes:
		return true
	case reminderAssumeNo:
		return false
	}
	fmt.Fprint(out, prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes" || answer == "s" || answer == "si" || answer == "sí"
}

func printReminderState(out io.Writer, r viewmodel.ReminderState) {
	if r.Message != "" {
		fmt.Fprintln(out, r.Message)
	}
	if r.ExactTimingAction == reminders.ActionRequestExactAlarm {
		fmt.Fprintln(out, `Run "expensetracker reminder permission exact grant" to allow exact timing.`)
	}
	switch {
	case !r.Enabled:
		fmt.Fprintln(out, "Reminder disabled.")
	case !r.NextFireAt.IsZero():
		fmt.Fprintf(out, "Reminder set for %02d:%02d, next at %s.\n", r.Hour, r.Minute, r.NextFireAt.Format("2006-01-02 15:04"))
	default:
		fmt.Fprintf(out, "Reminder saved for %02d:%02d but not scheduled.\n", r.Hour, r.Minute)
	}
}
