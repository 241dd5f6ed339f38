package vm

import (
	"luavm/internal/bytecode"
	"luavm/internal/errors"
)

// Handler executes one decoded instruction against the given State.
type Handler func(s *State, i bytecode.Instruction) error

// Handlers is the dispatch table, indexed by OpCode, of every opcode this
// core's Run loop can execute. A nil entry is an opcode this core declares
// (so disassembly and decoding still work) but does not implement: Run
// reports it as UnimplementedOpcode rather than panicking. OP_RETURN has no
// handler because Run special-cases it as the loop's halt condition, and
// OP_EXTRAARG is consumed inline by the LOADKX or SETLIST handler that
// precedes it.
var Handlers [len(bytecode.Opcodes)]Handler

func register(op bytecode.OpCode, h Handler) { Handlers[op] = h }

// Run drives the fetch-decode-execute loop until OP_RETURN halts it or a
// handler reports an error. OP_EXTRAARG is never fetched directly here: the
// handlers that need it advance pc themselves (LOADKX always, SETLIST when
// its C operand signals an out-of-line argument).
func Run(s *State) error {
	for {
		pc := s.PC()
		instr, err := s.Fetch()
		if err != nil {
			return err
		}
		op := instr.OpCode()
		if op == bytecode.OP_RETURN {
			return nil
		}
		handler := Handlers[op]
		if handler == nil {
			return errors.New(errors.UnimplementedOpcode, "opcode %s is not implemented", op).WithLocation(s.Source(), pc)
		}
		if err := handler(s, instr); err != nil {
			return err
		}
	}
}
