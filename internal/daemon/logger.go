package daemon

import (
	"log"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotatingLogger returns a logger writing to a size-rotated file. Long
// running daemons use this instead of stderr so logs survive restarts
// without growing unbounded.
func NewRotatingLogger(path string) *log.Logger {
	return log.New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}, "[watch] ", log.LstdFlags)
}
