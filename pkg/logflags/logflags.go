// Package logflags switches on per-component debug logging based on
// the --log and --log-output command line flags.
package logflags

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	events    = false
	engine    = false
	symbols   = false
	stackwalk = false
	pefile    = false
)

var logOut io.WriteCloser

func makeLogger(level logrus.Level, fields Fields) Logger {
	if loggerFactory != nil {
		return loggerFactory(level, fields, logOut)
	}
	logger := logrus.New()
	logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Out = logOut
	}
	logger.Level = level
	return &logrusLogger{logger.WithFields(logrus.Fields(fields))}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if flag {
		return makeLogger(logrus.DebugLevel, fields)
	}
	return makeLogger(logrus.ErrorLevel, fields)
}

// Events returns true if the debug event pump should log.
func Events() bool {
	return events
}

// EventsLogger returns a logger for the debug event pump.
func EventsLogger() Logger {
	return makeFlaggableLogger(events, Fields{"layer": "proc", "kind": "events"})
}

// Engine returns true if the process registry should log.
func Engine() bool {
	return engine
}

// EngineLogger returns a logger for the process registry.
func EngineLogger() Logger {
	return makeFlaggableLogger(engine, Fields{"layer": "proc", "kind": "engine"})
}

// Symbols returns true if symbol resolution should log.
func Symbols() bool {
	return symbols
}

// SymbolsLogger returns a logger for symbol resolution.
func SymbolsLogger() Logger {
	return makeFlaggableLogger(symbols, Fields{"layer": "symbols"})
}

// StackWalk returns true if the stack walker should log.
func StackWalk() bool {
	return stackwalk
}

// StackWalkLogger returns a logger for the stack walker.
func StackWalkLogger() Logger {
	return makeFlaggableLogger(stackwalk, Fields{"layer": "proc", "kind": "stackwalk"})
}

// PEFile returns true if the static image parser should log its
// recoverable errors.
func PEFile() bool {
	return pefile
}

// PEFileLogger returns a logger for the static image parser.
func PEFileLogger() Logger {
	return makeFlaggableLogger(pefile, Fields{"layer": "pefile"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the component logging flags based on the contents of
// logstr. If logDest is non-empty logs are redirected there, either to
// the file descriptor it names or to the file path.
func Setup(logFlag bool, logstr, logDest string) error {
	if logDest != "" {
		n, err := strconv.Atoi(logDest)
		if err == nil {
			logOut = os.NewFile(uintptr(n), "pstack-logs")
		} else {
			fh, err := os.Create(logDest)
			if err != nil {
				return fmt.Errorf("could not create log file: %v", err)
			}
			logOut = fh
		}
	}
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "events"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "events":
			events = true
		case "engine":
			engine = true
		case "symbols":
			symbols = true
		case "stackwalk":
			stackwalk = true
		case "pefile":
			pefile = true
		}
	}
	return nil
}

// Close closes the logger output.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}
