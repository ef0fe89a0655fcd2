package cmds

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-pstack/pstack/pkg/config"
	"github.com/go-pstack/pstack/pkg/logflags"
	"github.com/go-pstack/pstack/pkg/proc"
	"github.com/go-pstack/pstack/pkg/symbols"
	"github.com/go-pstack/pstack/pkg/version"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string

	allThreads    bool
	activeOnly    bool
	framePointers bool
	imageFallback bool
	elevate       bool
	instructions  bool
	printVersion  bool

	conf *config.Config
)

const pstackLongDesc = `PStack prints the native call stack of every thread of one or more
running Windows processes, without stopping them for longer than the
stack walk itself takes.

Process ids may be given in decimal, octal (0 prefix) or hexadecimal
(0x prefix).`

// New returns an initialized command tree.
func New() *cobra.Command {
	conf = config.LoadConfig()

	rootCommand := &cobra.Command{
		Use:   "pstack [flags] process [process...]",
		Short: "PStack prints stack traces of running Windows processes.",
		Long:  pstackLongDesc,
		RunE:  pstackCmd,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (events,engine,symbols,stackwalk,pefile).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")

	rootCommand.Flags().BoolVarP(&allThreads, "all-threads", "A", conf.AllThreadsDefault(), "Print the stack of every thread.")
	rootCommand.Flags().BoolVarP(&activeOnly, "one-thread", "O", false, "Print only the stack of the active thread.")
	rootCommand.Flags().BoolVarP(&framePointers, "frame-pointers", "F", conf.ShowFramePointers, "Print the frame pointer of every frame.")
	rootCommand.Flags().BoolVarP(&imageFallback, "image-symbols", "I", conf.ImageFallback, "Fall back to the symbols of the module image when the symbol engine has none.")
	rootCommand.Flags().BoolVarP(&elevate, "privilege", "P", false, "Enable the debug privilege before attaching.")
	rootCommand.Flags().BoolVarP(&instructions, "instruction", "X", conf.ShowInstruction, "Print the current instruction of the innermost frame.")
	rootCommand.Flags().BoolVarP(&printVersion, "version", "V", false, "Print version and exit.")
	rootCommand.Flags().BoolP("help", "H", false, "Print help and exit.")

	return rootCommand
}

func pstackCmd(cmd *cobra.Command, args []string) error {
	if printVersion {
		fmt.Println(version.PStackVersion.String())
		return nil
	}
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		return err
	}
	defer logflags.Close()

	if len(args) == 0 {
		cmd.Usage()
		return fmt.Errorf("no process specified")
	}
	printAll, err := threadSelection(allThreads, cmd.Flags().Changed("all-threads"), activeOnly)
	if err != nil {
		cmd.Usage()
		return err
	}

	pids := make([]int, 0, len(args))
	for _, arg := range args {
		pid, err := parsePid(arg)
		if err != nil {
			cmd.Usage()
			return err
		}
		pids = append(pids, pid)
	}

	engine := proc.NewEngine()
	if elevate {
		if err := engine.EnableDebugPrivilege(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	cache, err := symbols.NewCache(conf.ImageCacheSize)
	if err != nil {
		return err
	}
	defer cache.Close()

	exitCode := 0
	for _, pid := range pids {
		if err := printProcessStacks(engine, cache, pid, printAll); err != nil {
			fmt.Fprintf(os.Stderr, "pstack: process %d: %v\n", pid, err)
			exitCode = 1
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// threadSelection reduces the all-threads and one-thread flags to a
// single choice. Asking for both explicitly is a usage error; an
// explicit one-thread otherwise wins over the configured default.
func threadSelection(all, allSet, only bool) (bool, error) {
	if only {
		if all && allSet {
			return false, fmt.Errorf("-A and -O are mutually exclusive")
		}
		return false, nil
	}
	return all, nil
}

// parsePid accepts decimal, octal and hexadecimal process ids.
func parsePid(s string) (int, error) {
	pid, err := strconv.ParseInt(s, 0, 64)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid process id %q", s)
	}
	return int(pid), nil
}

func printProcessStacks(engine *proc.Engine, cache *symbols.Cache, pid int, allThreads bool) error {
	p, err := engine.Attach(pid, false)
	if err != nil {
		return err
	}
	defer engine.Detach(pid, false)

	printer := &stackPrinter{
		out:        os.Stdout,
		cache:      cache,
		allThreads: allThreads,
	}
	p.RegisterListener(printer)

	// Attaching queues the process bookkeeping events followed by a
	// breakpoint exception; the stacks are printed while that
	// breakpoint holds every thread still.
	for !printer.done {
		outcome, _, err := p.WaitForEvent(proc.WaitInfinite)
		if err != nil {
			return err
		}
		if outcome == proc.WaitTimeout {
			continue
		}
		if _, err := p.Valid(); err != nil {
			return err
		}
	}
	return printer.err
}

// stackPrinter prints the stacks of the debuggee once it reports the
// attach breakpoint.
type stackPrinter struct {
	out        *os.File
	cache      *symbols.Cache
	allThreads bool
	done       bool
	err        error
}

func (sp *stackPrinter) HandleEvent(p *proc.Process, ev *proc.Event) (bool, error) {
	exc, ok := ev.Payload.(*proc.ExceptionPayload)
	if !ok || exc.Code != proc.ExceptionBreakpoint {
		return false, nil
	}
	sp.done = true

	opts := &proc.StackOptions{
		MaxDepth: conf.MaxFrameDepth,
		Annotate: instructions,
	}
	if imageFallback {
		opts.ImageCache = sp.cache
	}

	fmt.Fprintf(sp.out, "process %d (%s):\n", p.Pid(), p.ExecutablePath())
	threads := p.Threads()
	if !sp.allThreads {
		if t, ok := p.FindThread(ev.Tid); ok {
			threads = []*proc.Thread{t}
		}
	}
	for _, t := range threads {
		sp.printThread(t, opts)
	}
	return true, nil
}

func (sp *stackPrinter) printThread(t *proc.Thread, opts *proc.StackOptions) {
	fmt.Fprintf(sp.out, "thread %d:\n", t.ID)
	frames, err := t.Stacktrace(opts)
	if err != nil {
		fmt.Fprintf(sp.out, "  <stack unavailable: %v>\n", err)
		if sp.err == nil {
			sp.err = err
		}
		return
	}
	for i, fr := range frames {
		sp.printFrame(i, &fr)
	}
}

func (sp *stackPrinter) printFrame(i int, fr *proc.Stackframe) {
	fmt.Fprintf(sp.out, "  #%-2d %#016x", i, fr.PC)
	if framePointers {
		fmt.Fprintf(sp.out, " fp=%#016x", fr.FP)
	}
	if fr.Module != nil {
		if name, err := fr.Module.Name(); err == nil {
			fmt.Fprintf(sp.out, " %s", name)
		}
	}
	if fr.Symbol != nil {
		fmt.Fprintf(sp.out, "!%s+%#x", fr.Symbol.Name, fr.Symbol.Offset)
	}
	if fr.Line != nil {
		fmt.Fprintf(sp.out, " [%s:%d]", fr.Line.File, fr.Line.Line)
	}
	if fr.Instruction != "" {
		fmt.Fprintf(sp.out, " ; %s", fr.Instruction)
	}
	fmt.Fprintln(sp.out)
}
