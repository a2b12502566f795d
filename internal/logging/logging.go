// Package logging builds the structured logrus.Logger every pipeline
// component logs through, grounded on
// mdzesseis-log_capturer_go/pkg/workerpool's logger field usage
// (logrus.Fields on every log call, one shared *logrus.Logger passed
// down to each worker) and on the teacher repo's own logrus dependency.
package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a text-formatted logrus.Logger at the given level ("debug",
// "info", "warn", "error"); an unrecognized level falls back to Info.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// WithPathSpec scopes a log entry to the path spec it concerns, the
// single most common correlation key across collector/worker/storage
// log lines.
func WithPathSpec(log *logrus.Logger, pathSpec string) *logrus.Entry {
	return log.WithField("pathspec", pathSpec)
}

// WithParser scopes a log entry to the parser that produced it.
func WithParser(log *logrus.Logger, parser string) *logrus.Entry {
	return log.WithField("parser", parser)
}

// WithStage scopes a log entry to a pipeline stage (collector, worker,
// storage, merge).
func WithStage(log *logrus.Logger, stage string) *logrus.Entry {
	return log.WithField("stage", stage)
}
