package cmds

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	logLevel *string
	logger   = log.NewNopLogger()
)

func init() {
	logLevel = rootCmd.PersistentFlags().String("log-level", "info", "Log level, one of debug, info, warn, error")
}

var rootCmd = &cobra.Command{
	Use:   "dict-tool",
	Short: "dict-tool is a tool to write and inspect dictionary encoded string column files",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(*logLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func newLogger(lvl string) (log.Logger, error) {
	var opt level.Option
	switch lvl {
	case "debug":
		opt = level.AllowDebug()
	case "info":
		opt = level.AllowInfo()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		return nil, errors.Errorf("invalid log level %q", lvl)
	}
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(l, opt), nil
}

// Execute try to find and execute the command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		level.Error(logger).Log("msg", "failed to execute command", "err", err)
		os.Exit(1)
	}
}
