// Command luavm loads a precompiled Lua 5.3-format binary chunk and runs it
// against the register VM core.
package main

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"luavm/internal/bytecode"
	"luavm/internal/vm"
)

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", path, err)
	}
	defer m.Unmap()

	proto, err := bytecode.Undump(m)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	state := vm.NewState(proto)
	if err := vm.Run(state); err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: luavm <chunk.luac>")
		os.Exit(2)
	}
	if err := run(os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
