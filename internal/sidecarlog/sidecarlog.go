// Package sidecarlog captures sidecar stdout/stderr into rotating files so a
// crashing child leaves evidence behind without growing unbounded logs.
package sidecarlog

import (
	"fmt"
	"io"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where one sidecar's output goes. An empty Dir disables
// capture; the supervisor then discards child output.
type Config struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Writers returns rotating stdout and stderr writers for the named sidecar:
// Dir/<name>.stdout.log and Dir/<name>.stderr.log.
func (c Config) Writers(name string) (io.WriteCloser, io.WriteCloser) {
	if c.Dir == "" {
		return nil, nil
	}
	return c.writer(name, "stdout"), c.writer(name, "stderr")
}

func (c Config) writer(name, stream string) io.WriteCloser {
	return &lj.Logger{
		Filename:   filepath.Join(c.Dir, fmt.Sprintf("%s.%s.log", name, stream)),
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
