package logflags

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveState restores the package level flags and sinks that Setup and
// SetLoggerFactory mutate, so tests do not leak into each other.
func saveState(t *testing.T) {
	t.Helper()
	sEvents, sEngine, sSymbols, sStackwalk, sPefile := events, engine, symbols, stackwalk, pefile
	sOut, sFactory := logOut, loggerFactory
	t.Cleanup(func() {
		events, engine, symbols, stackwalk, pefile = sEvents, sEngine, sSymbols, sStackwalk, sPefile
		logOut, loggerFactory = sOut, sFactory
	})
}

func TestSetupComponents(t *testing.T) {
	saveState(t)
	events, engine, symbols, stackwalk, pefile = false, false, false, false, false

	if err := Setup(true, "engine,pefile", ""); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !Engine() || !PEFile() {
		t.Errorf("requested components not enabled: engine=%v pefile=%v", Engine(), PEFile())
	}
	if Events() || Symbols() || StackWalk() {
		t.Errorf("unrequested components enabled: events=%v symbols=%v stackwalk=%v", Events(), Symbols(), StackWalk())
	}
}

func TestSetupDefaultComponent(t *testing.T) {
	saveState(t)
	events, engine, symbols, stackwalk, pefile = false, false, false, false, false

	if err := Setup(true, "", ""); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if !Events() {
		t.Errorf("empty --log-output did not enable the event pump component")
	}
	if Engine() || Symbols() || StackWalk() || PEFile() {
		t.Errorf("empty --log-output enabled more than the default component")
	}
}

func TestSetupLogstrWithoutLog(t *testing.T) {
	saveState(t)
	events, engine, symbols, stackwalk, pefile = false, false, false, false, false

	if err := Setup(false, "symbols", ""); err != errLogstrWithoutLog {
		t.Fatalf("Setup(false, \"symbols\", \"\") = %v, want %v", err, errLogstrWithoutLog)
	}
	if Symbols() {
		t.Errorf("component enabled although --log was off")
	}
	if err := Setup(false, "", ""); err != nil {
		t.Errorf("Setup with logging off entirely: %v", err)
	}
}

func TestSetupLogDestPath(t *testing.T) {
	saveState(t)

	path := filepath.Join(t.TempDir(), "pstack.log")
	if err := Setup(true, "events", path); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if logOut == nil {
		t.Fatalf("log destination path did not open a sink")
	}
	if _, err := io.WriteString(logOut, "hello\n"); err != nil {
		t.Errorf("writing to the log sink: %v", err)
	}
	Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file back: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("log file contents = %q", data)
	}
}

func TestSetupLogDestFd(t *testing.T) {
	saveState(t)

	f, err := os.Create(filepath.Join(t.TempDir(), "fd.log"))
	if err != nil {
		t.Fatalf("creating scratch file: %v", err)
	}
	defer f.Close()

	if err := Setup(true, "", strconv.Itoa(int(f.Fd()))); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	out, ok := logOut.(*os.File)
	if !ok {
		t.Fatalf("numeric log destination produced a %T, want *os.File", logOut)
	}
	if out.Fd() != f.Fd() {
		t.Errorf("log sink wraps fd %d, want %d", out.Fd(), f.Fd())
	}
}

func TestFlaggableLoggerLevels(t *testing.T) {
	saveState(t)
	loggerFactory = nil

	on, ok := makeFlaggableLogger(true, Fields{"layer": "proc"}).(*logrusLogger)
	if !ok {
		t.Fatalf("makeFlaggableLogger did not return the logrus wrapper")
	}
	if on.Entry.Logger.Level != logrus.DebugLevel {
		t.Errorf("enabled component logs at %v, want %v", on.Entry.Logger.Level, logrus.DebugLevel)
	}
	if on.Entry.Data["layer"] != "proc" {
		t.Errorf("fields not carried: %v", on.Entry.Data)
	}

	off, ok := makeFlaggableLogger(false, nil).(*logrusLogger)
	if !ok {
		t.Fatalf("makeFlaggableLogger did not return the logrus wrapper")
	}
	if off.Entry.Logger.Level != logrus.ErrorLevel {
		t.Errorf("disabled component logs at %v, want %v", off.Entry.Logger.Level, logrus.ErrorLevel)
	}
}

func TestComponentLoggerUsesFactory(t *testing.T) {
	saveState(t)
	events = true

	want := &logrusLogger{}
	SetLoggerFactory(func(level logrus.Level, fields Fields, out io.Writer) Logger {
		if level != logrus.DebugLevel {
			t.Errorf("factory level = %v, want %v", level, logrus.DebugLevel)
		}
		if fields["layer"] != "proc" || fields["kind"] != "events" {
			t.Errorf("factory fields = %v", fields)
		}
		if out != logOut {
			t.Errorf("factory out = %v, want the configured sink", out)
		}
		return want
	})

	if got := EventsLogger(); got != want {
		t.Errorf("EventsLogger did not return the factory's logger")
	}
}
