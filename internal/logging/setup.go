package logging

import (
	"io"
	"os"
)

// Options selects where and how much the helper logs.
type Options struct {
	Format     string
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	Verbose    bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup initializes the global logger from opts. Logs always go to stderr;
// when File is set they are also appended to a rotating file. The returned
// closer releases the file and must be called before the process exits.
func Setup(opts Options) (io.Closer, error) {
	level := opts.Level
	if opts.Verbose {
		level = "debug"
	}

	if opts.File == "" {
		Init(opts.Format, level, os.Stderr)
		return nopCloser{}, nil
	}

	rw, err := NewRotatingWriter(opts.File, opts.MaxSizeMB, opts.MaxBackups)
	if err != nil {
		Init(opts.Format, level, os.Stderr)
		return nopCloser{}, err
	}

	Init(opts.Format, level, TeeWriter(os.Stderr, rw))
	return rw, nil
}
