// Package symbols resolves memory addresses to symbol names.
//
// Two interchangeable strategies are provided: DbgHelp wraps the
// Windows symbol engine for a live debuggee, Static searches the
// export directory and COFF symbol table of the module image itself.
package symbols

// Symbol is a resolved debug symbol.
type Symbol struct {
	// Addr is the start address of the symbol.
	Addr uint64
	// Offset is the distance from the queried address back to Addr.
	Offset uint64
	// Name is the (possibly mangled) symbol name.
	Name string
}

// Line is a resolved source location.
type Line struct {
	File string
	Line int
}

// Resolver translates an address into a Symbol. A nil Symbol with a
// nil error means the address has no known symbol; absence is an
// expected outcome, not an error.
type Resolver interface {
	FindSymbol(addr uint64) (*Symbol, error)
	Close() error
}
