package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

const normalLogSize = 512

// logFlagsEnvironmentVariable names the environment variable holding the
// comma separated flags of backends created with NewBackend
const logFlagsEnvironmentVariable = "UTXOTREE_LOGFLAGS"

// defaultFlags is initialized as a variable rather than in init() since
// BackendLog, which is initialized before any init function runs, needs it
var defaultFlags = flagsFromEnvironment()

// Flags to modify Backend's behavior.
const (
	// LogFlagLongFile adds the full path and line number of the logging
	// callsite to every entry, e.g. /a/b/c/main.go:123.
	LogFlagLongFile uint32 = 1 << iota

	// LogFlagShortFile adds the file name and line number of the logging
	// callsite to every entry, e.g. main.go:123. Takes precedence over
	// LogFlagLongFile.
	LogFlagShortFile
)

var flagsByName = map[string]uint32{
	"longfile":  LogFlagLongFile,
	"shortfile": LogFlagShortFile,
}

func flagsFromEnvironment() uint32 {
	var flags uint32
	for _, name := range strings.Split(os.Getenv(logFlagsEnvironmentVariable), ",") {
		flags |= flagsByName[strings.TrimSpace(name)]
	}
	return flags
}

const (
	defaultThresholdKB = 100 * 1000 // 100 MB
	defaultMaxRolls    = 8
)

// Backend is a logging backend. Every subsystem Logger created from it hands
// its entries to a single goroutine, which writes each entry to every writer
// whose level it reaches.
type Backend struct {
	flag      uint32
	isRunning uint32
	writers   []logWriter
	writeChan chan logEntry

	// syncClose is held by the writing goroutine until the entries channel
	// is drained
	syncClose sync.Mutex
}

type logWriter struct {
	io.WriteCloser
	level Level
}

// NewBackendWithFlags creates a Backend that uses flags instead of the ones
// read from the environment
func NewBackendWithFlags(flags uint32) *Backend {
	return &Backend{flag: flags, writeChan: make(chan logEntry)}
}

// NewBackend creates a new logger backend, configured by the
// UTXOTREE_LOGFLAGS environment variable
func NewBackend() *Backend {
	return NewBackendWithFlags(defaultFlags)
}

func (b *Backend) addWriter(writer io.WriteCloser, level Level) error {
	if b.IsRunning() {
		return errors.New("writers can't be added to a running logger")
	}
	b.writers = append(b.writers, logWriter{WriteCloser: writer, level: level})
	return nil
}

// AddLogWriter makes the backend write every entry at level or above to
// writer. Writers can only be added before the backend runs.
func (b *Backend) AddLogWriter(writer io.WriteCloser, level Level) error {
	return b.addWriter(writer, level)
}

// AddLogFile makes the backend write every entry at level or above to
// logFile, rotated with the default settings
func (b *Backend) AddLogFile(logFile string, level Level) error {
	return b.AddLogFileWithCustomRotator(logFile, level, defaultThresholdKB, defaultMaxRolls)
}

// AddLogFileWithCustomRotator makes the backend write every entry at level
// or above to logFile. The file is rotated once it grows beyond thresholdKB,
// keeping at most maxRolls old files. Missing directories are created.
func (b *Backend) AddLogFileWithCustomRotator(logFile string, level Level, thresholdKB int64, maxRolls int) error {
	logDir, _ := filepath.Split(logFile)
	if logDir != "" {
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			return errors.Wrapf(err, "failed to create log directory %s", logDir)
		}
	}
	r, err := rotator.New(logFile, thresholdKB, false, maxRolls)
	if err != nil {
		return errors.Wrapf(err, "failed to create a rotator for %s", logFile)
	}
	return b.addWriter(r, level)
}

// Run starts the goroutine writing the backend's entries. It fails if the
// backend is already running.
func (b *Backend) Run() error {
	if !atomic.CompareAndSwapUint32(&b.isRunning, 0, 1) {
		return errors.New("the logger is already running")
	}
	go func() {
		defer func() {
			if err := recover(); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Fatal error in the logger goroutine: %+v\n", err)
				_, _ = fmt.Fprintf(os.Stderr, "Goroutine stacktrace: %s\n", debug.Stack())
			}
		}()
		b.writeEntries()
	}()
	return nil
}

func (b *Backend) writeEntries() {
	defer atomic.StoreUint32(&b.isRunning, 0)
	b.syncClose.Lock()
	defer b.syncClose.Unlock()

	for entry := range b.writeChan {
		for _, writer := range b.writers {
			if entry.level >= writer.level {
				_, _ = writer.Write(entry.log)
			}
		}
	}
}

// IsRunning returns whether Run was called and the backend wasn't closed
// since
func (b *Backend) IsRunning() bool {
	return atomic.LoadUint32(&b.isRunning) != 0
}

// Close waits for every pending entry to be written, then closes all
// writers. Nothing may be logged through the backend afterwards.
func (b *Backend) Close() {
	close(b.writeChan)
	b.syncClose.Lock()
	defer b.syncClose.Unlock()
	for _, writer := range b.writers {
		_ = writer.Close()
	}
}

// Logger returns a new logger for the subsystem tagged subsystemTag, writing
// to b. The logger is off until its level is set.
func (b *Backend) Logger(subsystemTag string) *Logger {
	return &Logger{LevelOff, subsystemTag, b, b.writeChan}
}
