package cmds

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-pstack/pstack/pkg/logflags"
	"github.com/go-pstack/pstack/pkg/symbols"
	"github.com/go-pstack/pstack/pkg/version"
)

var (
	log       bool
	logOutput string
	logDest   string

	baseOverride string
	printVersion bool
)

const addr2lnLongDesc = `Addr2ln resolves raw addresses against the symbol information stored
in a PE module image: its COFF symbol table and its export directory.

By default addresses are interpreted relative to the link-time image
base recorded in the module header; use -B when the module was loaded
elsewhere. Addresses may be given in decimal, octal (0 prefix) or
hexadecimal (0x prefix).`

// New returns an initialized command tree.
func New() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "addr2ln [flags] module address [address...]",
		Short: "Addr2ln resolves addresses against a PE module image.",
		Long:  addr2lnLongDesc,
		RunE:  addr2lnCmd,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debug logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of components that should produce debug output (symbols,pefile).")
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor.")

	rootCommand.Flags().StringVarP(&baseOverride, "base", "B", "", "Module load address to resolve against instead of the header image base.")
	rootCommand.Flags().BoolVarP(&printVersion, "version", "V", false, "Print version and exit.")
	rootCommand.Flags().BoolP("help", "H", false, "Print help and exit.")

	return rootCommand
}

func addr2lnCmd(cmd *cobra.Command, args []string) error {
	if printVersion {
		fmt.Println(version.PStackVersion.String())
		return nil
	}
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		return err
	}
	defer logflags.Close()

	if len(args) < 2 {
		cmd.Usage()
		return fmt.Errorf("need a module and at least one address")
	}
	module := args[0]

	var base uint64
	if baseOverride != "" {
		b, err := strconv.ParseUint(baseOverride, 0, 64)
		if err != nil {
			cmd.Usage()
			return fmt.Errorf("invalid base address %q", baseOverride)
		}
		base = b
	}

	res, err := symbols.OpenStatic(module, base)
	if err != nil {
		return err
	}
	defer res.Close()

	for _, arg := range args[1:] {
		addr, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid address %q", arg)
		}
		printAddr(res, addr)
	}
	return nil
}

func printAddr(res *symbols.Static, addr uint64) {
	sym, err := res.FindSymbol(addr)
	switch {
	case err != nil:
		fmt.Printf("%#016x <error: %v>\n", addr, err)
	case sym == nil:
		fmt.Printf("%#016x ??\n", addr)
	default:
		fmt.Printf("%#016x %s+%#x\n", addr, sym.Name, sym.Offset)
	}
}
