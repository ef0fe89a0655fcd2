package proc

import (
	"golang.org/x/arch/x86/x86asm"
)

const maxInstructionLength = 15

// annotateInstruction decodes the single instruction found in mem,
// assumed to start at pc, and renders it in Intel syntax. An empty
// string means the bytes did not decode.
func annotateInstruction(mem []byte, pc uint64) string {
	if len(mem) > maxInstructionLength {
		mem = mem[:maxInstructionLength]
	}
	inst, err := x86asm.Decode(mem, 64)
	if err != nil {
		return ""
	}
	patchPCRel(pc, &inst)
	return x86asm.IntelSyntax(inst, pc, nil)
}

// patchPCRel rewrites PC relative operands as absolute addresses.
func patchPCRel(pc uint64, inst *x86asm.Inst) {
	for i := range inst.Args {
		rel, ok := inst.Args[i].(x86asm.Rel)
		if ok {
			inst.Args[i] = x86asm.Imm(int64(pc) + int64(rel) + int64(inst.Len))
		}
		mem, ok := inst.Args[i].(x86asm.Mem)
		if ok && mem.Base == x86asm.RIP {
			mem.Base = 0
			mem.Disp += int64(pc) + int64(inst.Len)
			inst.Args[i] = mem
		}
	}
}
