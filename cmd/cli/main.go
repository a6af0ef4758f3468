package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/app"
	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/config"
	"github.com/keshon/botcore/internal/logging"
)

var flags consoleFlags

// rootCmd runs the command set against a terminal instead of Discord
var rootCmd = &cobra.Command{
	Use:   "botcore-cli",
	Short: "Use the bot's commands from a terminal",
	Long: `Reads one message per line from stdin and answers on stdout.

Lines starting with the command prefix are dispatched as commands, every
line is also offered to pending waits (e.g. a restart confirmation).
Settings, tags and history use the same datastore as the Discord bot.`,
	SilenceUsage: true,
	RunE:         runConsole,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.user, "user", "console", "user id of the actor")
	f.StringVar(&flags.guild, "guild", "console", "guild id, empty for a DM")
	f.StringVar(&flags.channel, "channel", "console", "channel id")
	f.StringVar(&flags.voice, "voice", "", "voice channel the actor is in")
	f.StringVar(&flags.level, "level", "standard", "actor level: standard, moderator, administrator or server_owner")
	f.BoolVar(&flags.operator, "operator", false, "treat the actor as a bot operator")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runConsole(cmd *cobra.Command, _ []string) error {
	actor, loc, err := flags.resolve()
	if err != nil {
		return err
	}

	if _, err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.New()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := app.New(ctx, cfg, logger, app.Options{Restart: cancel})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to shut down cleanly", zap.Error(err))
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Type %shelp to list commands, Ctrl+D to quit.\n", cfg.Prefix)
	c := newConsole(a.Dispatcher, a.Waiter, actor, loc, cmd.OutOrStdout())
	return c.run(ctx, cmd.InOrStdin())
}

type consoleFlags struct {
	user, guild, channel, voice, level string
	operator                           bool
}

func (f consoleFlags) resolve() (command.Actor, command.Location, error) {
	level, ok := command.ParseLevel(f.level)
	if !ok || level == command.Operator {
		return command.Actor{}, command.Location{}, fmt.Errorf("unknown level %q", f.level)
	}
	actor := command.Actor{ID: f.user, Level: level, Operator: f.operator}
	loc := command.Location{ChannelID: f.channel, GuildID: f.guild, VoiceChannelID: f.voice}
	return actor, loc, nil
}
