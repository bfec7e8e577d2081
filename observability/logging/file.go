package logging

import (
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Output returns stdout when path is empty and a size-rotated file otherwise.
// Callers close the returned closer on shutdown.
func Output(path string) (io.Writer, io.Closer) {
	path = strings.TrimSpace(path)
	if path == "" {
		return os.Stdout, nopCloser{}
	}
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotating), rotating
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
