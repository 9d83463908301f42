// Command homework-bot relays homework review status changes to a Telegram chat.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yatube/internal/config"
	"yatube/internal/homework"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	once    bool
	fromTS  int64
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "homework-bot",
	Short: "Poll the homework review API and send status changes to Telegram",
	Long: `homework-bot asks the review API for status changes every RETRY_TIME
and forwards each one to TELEGRAM_CHAT_ID. Failures are reported to the same chat.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&once, "once", false, "Poll a single time and exit")
	rootCmd.Flags().Int64Var(&fromTS, "from", 0, "Unix timestamp to start from (defaults to now)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Override BOT_LOG_FILE")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadBotConfig()
	if err != nil {
		return err
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	log := homework.NewLogger(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = log.Sync() }()

	api := homework.NewClient(cfg.HomeworkEndpoint, cfg.PracticumToken, cfg.RequestTimeout)
	bot := homework.NewTelegram(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramChatID, cfg.RequestTimeout)
	poller := homework.NewPoller(api, bot, log, cfg.RetryTime)
	if fromTS > 0 {
		poller.SetFrom(fromTS)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		tickCtx, cancel := context.WithTimeout(ctx, 2*cfg.RequestTimeout+time.Second)
		defer cancel()
		return poller.Tick(tickCtx)
	}

	log.Info("starting", zap.String("endpoint", cfg.HomeworkEndpoint))
	return poller.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
