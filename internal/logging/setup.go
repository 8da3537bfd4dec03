// Package logging configures the process-wide log sink. The sink is set up
// exactly once at startup and never reconfigured; all packages log through
// the logrus standard logger.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// RotateArgs carries log-file rotation settings.
type RotateArgs struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultRotateArgs keeps a handful of bounded log files around.
var DefaultRotateArgs = RotateArgs{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 30}

var setupOnce sync.Once

// SetUp configures the global sink. When logFile is empty, logs go to stderr.
// Subsequent calls are no-ops.
func SetUp(level string, logFile string, rotate RotateArgs) error {
	var err error
	setupOnce.Do(func() {
		var lvl logrus.Level
		lvl, err = logrus.ParseLevel(level)
		if err != nil {
			err = errors.Wrapf(err, "parse log level %q", level)
			return
		}
		logrus.SetLevel(lvl)
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		if logFile == "" {
			logrus.SetOutput(os.Stderr)
			return
		}
		if mkErr := os.MkdirAll(filepath.Dir(logFile), 0o755); mkErr != nil {
			err = errors.Wrapf(mkErr, "create log dir for %s", logFile)
			return
		}
		logrus.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    rotate.MaxSizeMB,
			MaxBackups: rotate.MaxBackups,
			MaxAge:     rotate.MaxAgeDays,
			Compress:   rotate.Compress,
		})
	})
	return err
}
