// Package insts provides RV32 instruction definitions and decoding.
//
// This package implements decoding of RV32 machine code into structured
// instruction representations. It covers the G profile (IMAFD), the
// Zba/Zbb/Zbc/Zbs bit-manipulation extensions, a unit-stride subset of the
// vector extension, and the compressed (RVC) encodings, which are expanded
// to their 32-bit equivalents before operand binding.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x1000, 0x00A00093) // ADDI x1, x0, 10
//	fmt.Printf("Op: %v, Rd: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Imm)
package insts

import "fmt"

// Op identifies an RV32 operation.
type Op uint16

// RV32 opcodes. The order is stable; OpIllegal must stay first so a
// zero-valued Instruction decodes as illegal.
const (
	OpIllegal Op = iota

	// RV32I
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK

	// Zicsr
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	// M
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// A
	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
	OpAMOXORW
	OpAMOANDW
	OpAMOORW
	OpAMOMINW
	OpAMOMAXW
	OpAMOMINUW
	OpAMOMAXUW

	// Zba
	OpSH1ADD
	OpSH2ADD
	OpSH3ADD

	// Zbb
	OpANDN
	OpORN
	OpXNOR
	OpCLZ
	OpCTZ
	OpCPOP
	OpMAX
	OpMAXU
	OpMIN
	OpMINU
	OpSEXTB
	OpSEXTH
	OpZEXTH
	OpROL
	OpROR
	OpRORI
	OpORCB
	OpREV8

	// Zbc
	OpCLMUL
	OpCLMULH
	OpCLMULR

	// Zbs
	OpBCLR
	OpBCLRI
	OpBSET
	OpBSETI
	OpBINV
	OpBINVI
	OpBEXT
	OpBEXTI

	// F
	OpFLW
	OpFSW
	OpFMADDS
	OpFMSUBS
	OpFNMSUBS
	OpFNMADDS
	OpFADDS
	OpFSUBS
	OpFMULS
	OpFDIVS
	OpFSQRTS
	OpFSGNJS
	OpFSGNJNS
	OpFSGNJXS
	OpFMINS
	OpFMAXS
	OpFCVTWS
	OpFCVTWUS
	OpFMVXW
	OpFEQS
	OpFLTS
	OpFLES
	OpFCLASSS
	OpFCVTSW
	OpFCVTSWU
	OpFMVWX

	// D
	OpFLD
	OpFSD
	OpFMADDD
	OpFMSUBD
	OpFNMSUBD
	OpFNMADDD
	OpFADDD
	OpFSUBD
	OpFMULD
	OpFDIVD
	OpFSQRTD
	OpFSGNJD
	OpFSGNJND
	OpFSGNJXD
	OpFMIND
	OpFMAXD
	OpFCVTSD
	OpFCVTDS
	OpFEQD
	OpFLTD
	OpFLED
	OpFCLASSD
	OpFCVTWD
	OpFCVTWUD
	OpFCVTDW
	OpFCVTDWU

	// V (config + unit-stride memory + integer subset)
	OpVSETVLI
	OpVSETIVLI
	OpVSETVL
	OpVLE8
	OpVLE16
	OpVLE32
	OpVSE8
	OpVSE16
	OpVSE32
	OpVADDVV
	OpVADDVX
	OpVADDVI
	OpVSUBVV
	OpVSUBVX
	OpVANDVV
	OpVANDVX
	OpVANDVI
	OpVORVV
	OpVORVX
	OpVORVI
	OpVXORVV
	OpVXORVX
	OpVXORVI
	OpVMVVV
	OpVMVVX
	OpVMVVI

	// NumOps is the number of defined opcodes; usable as an array bound.
	NumOps
)

// Format identifies an instruction encoding format, which determines how
// operand fields are extracted from the 32-bit word.
type Format uint8

// Encoding formats.
const (
	FormatUnknown Format = iota
	FormatR              // rd, rs1, rs2
	FormatR4             // rd, rs1, rs2, rs3, rm (fused multiply-add)
	FormatI              // rd, rs1, imm12
	FormatIShift         // rd, rs1, shamt5
	FormatS              // rs1, rs2, imm12 (stores)
	FormatB              // rs1, rs2, imm13 (branches)
	FormatU              // rd, imm20<<12
	FormatJ              // rd, imm21 (jal)
	FormatCSR            // rd, rs1, csr
	FormatCSRI           // rd, uimm5, csr
	FormatAMO            // rd, rs1, rs2 (aq/rl ignored)
	FormatFP             // rd, rs1, rs2, rm
	FormatVCfg           // vsetvli/vsetivli/vsetvl
	FormatVMem           // vector unit-stride load/store
	FormatVArith         // vd, vs2, vs1/rs1/imm, vm
	FormatSystem         // ecall/ebreak/fence
)

// Instruction is a decoded RV32 instruction.
//
// Addr is the PC the instruction was fetched from and Size the width of the
// original encoding in bytes (2 for a compressed instruction, 4 otherwise);
// PC-relative semantics use Addr, and the run loop advances PC by Size.
type Instruction struct {
	Op     Op
	Format Format

	Rd  uint8
	Rs1 uint8
	Rs2 uint8
	Rs3 uint8

	// Imm is the sign-extended immediate. Shift amounts, CSR immediates,
	// and vector uimm5 values are stored zero-extended.
	Imm int32

	// CSR is the 12-bit CSR index for Zicsr instructions.
	CSR uint16

	// Rm is the rounding-mode field for floating-point instructions.
	Rm uint8

	// Vm is true when a vector instruction is unmasked (vm bit set).
	Vm bool

	Addr uint32
	Size uint32
	Raw  uint32
}

// Mnemonic returns the assembler mnemonic for the opcode ("add", "clmul").
func (o Op) Mnemonic() string {
	if int(o) < len(mnemonics) && mnemonics[o] != "" {
		return mnemonics[o]
	}
	return "illegal"
}

// String implements fmt.Stringer for opcodes.
func (o Op) String() string { return o.Mnemonic() }

// String disassembles the instruction.
func (i *Instruction) String() string {
	switch i.Format {
	case FormatR, FormatAMO:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FormatI:
		switch i.Op {
		case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpJALR:
			return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rd, i.Imm, i.Rs1)
		case OpFLW, OpFLD:
			return fmt.Sprintf("%s f%d, %d(x%d)", i.Op, i.Rd, i.Imm, i.Rs1)
		case OpCLZ, OpCTZ, OpCPOP, OpSEXTB, OpSEXTH, OpZEXTH, OpORCB, OpREV8:
			return fmt.Sprintf("%s x%d, x%d", i.Op, i.Rd, i.Rs1)
		}
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatIShift:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatS:
		if i.Op == OpFSW || i.Op == OpFSD {
			return fmt.Sprintf("%s f%d, %d(x%d)", i.Op, i.Rs2, i.Imm, i.Rs1)
		}
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rs2, i.Imm, i.Rs1)
	case FormatB:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rs1, i.Rs2, i.Imm)
	case FormatU:
		return fmt.Sprintf("%s x%d, 0x%x", i.Op, i.Rd, uint32(i.Imm)>>12)
	case FormatJ:
		return fmt.Sprintf("%s x%d, %d", i.Op, i.Rd, i.Imm)
	case FormatCSR:
		return fmt.Sprintf("%s x%d, 0x%03x, x%d", i.Op, i.Rd, i.CSR, i.Rs1)
	case FormatCSRI:
		return fmt.Sprintf("%s x%d, 0x%03x, %d", i.Op, i.Rd, i.CSR, i.Imm)
	case FormatR4:
		return fmt.Sprintf("%s f%d, f%d, f%d, f%d", i.Op, i.Rd, i.Rs1, i.Rs2, i.Rs3)
	case FormatFP:
		return fmt.Sprintf("%s f%d, f%d, f%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case FormatVCfg:
		if i.Op == OpVSETVL {
			return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rs1, i.Rs2)
		}
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, i.Imm)
	case FormatVMem:
		return fmt.Sprintf("%s v%d, (x%d)", i.Op, i.Rd, i.Rs1)
	case FormatVArith:
		return fmt.Sprintf("%s v%d, v%d, %d", i.Op, i.Rd, i.Rs2, i.Imm)
	case FormatSystem:
		return i.Op.Mnemonic()
	}
	return fmt.Sprintf(".word 0x%08x", i.Raw)
}

var mnemonics = [NumOps]string{
	OpIllegal: "illegal",

	OpLUI: "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge",
	OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori",
	OpORI: "ori", OpANDI: "andi",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpFENCE: "fence", OpFENCEI: "fence.i", OpECALL: "ecall", OpEBREAK: "ebreak",

	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",

	OpMUL: "mul", OpMULH: "mulh", OpMULHSU: "mulhsu", OpMULHU: "mulhu",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",

	OpLRW: "lr.w", OpSCW: "sc.w",
	OpAMOSWAPW: "amoswap.w", OpAMOADDW: "amoadd.w", OpAMOXORW: "amoxor.w",
	OpAMOANDW: "amoand.w", OpAMOORW: "amoor.w",
	OpAMOMINW: "amomin.w", OpAMOMAXW: "amomax.w",
	OpAMOMINUW: "amominu.w", OpAMOMAXUW: "amomaxu.w",

	OpSH1ADD: "sh1add", OpSH2ADD: "sh2add", OpSH3ADD: "sh3add",

	OpANDN: "andn", OpORN: "orn", OpXNOR: "xnor",
	OpCLZ: "clz", OpCTZ: "ctz", OpCPOP: "cpop",
	OpMAX: "max", OpMAXU: "maxu", OpMIN: "min", OpMINU: "minu",
	OpSEXTB: "sext.b", OpSEXTH: "sext.h", OpZEXTH: "zext.h",
	OpROL: "rol", OpROR: "ror", OpRORI: "rori",
	OpORCB: "orc.b", OpREV8: "rev8",

	OpCLMUL: "clmul", OpCLMULH: "clmulh", OpCLMULR: "clmulr",

	OpBCLR: "bclr", OpBCLRI: "bclri", OpBSET: "bset", OpBSETI: "bseti",
	OpBINV: "binv", OpBINVI: "binvi", OpBEXT: "bext", OpBEXTI: "bexti",

	OpFLW: "flw", OpFSW: "fsw",
	OpFMADDS: "fmadd.s", OpFMSUBS: "fmsub.s",
	OpFNMSUBS: "fnmsub.s", OpFNMADDS: "fnmadd.s",
	OpFADDS: "fadd.s", OpFSUBS: "fsub.s", OpFMULS: "fmul.s", OpFDIVS: "fdiv.s",
	OpFSQRTS: "fsqrt.s",
	OpFSGNJS: "fsgnj.s", OpFSGNJNS: "fsgnjn.s", OpFSGNJXS: "fsgnjx.s",
	OpFMINS: "fmin.s", OpFMAXS: "fmax.s",
	OpFCVTWS: "fcvt.w.s", OpFCVTWUS: "fcvt.wu.s", OpFMVXW: "fmv.x.w",
	OpFEQS: "feq.s", OpFLTS: "flt.s", OpFLES: "fle.s", OpFCLASSS: "fclass.s",
	OpFCVTSW: "fcvt.s.w", OpFCVTSWU: "fcvt.s.wu", OpFMVWX: "fmv.w.x",

	OpFLD: "fld", OpFSD: "fsd",
	OpFMADDD: "fmadd.d", OpFMSUBD: "fmsub.d",
	OpFNMSUBD: "fnmsub.d", OpFNMADDD: "fnmadd.d",
	OpFADDD: "fadd.d", OpFSUBD: "fsub.d", OpFMULD: "fmul.d", OpFDIVD: "fdiv.d",
	OpFSQRTD: "fsqrt.d",
	OpFSGNJD: "fsgnj.d", OpFSGNJND: "fsgnjn.d", OpFSGNJXD: "fsgnjx.d",
	OpFMIND: "fmin.d", OpFMAXD: "fmax.d",
	OpFCVTSD: "fcvt.s.d", OpFCVTDS: "fcvt.d.s",
	OpFEQD: "feq.d", OpFLTD: "flt.d", OpFLED: "fle.d", OpFCLASSD: "fclass.d",
	OpFCVTWD: "fcvt.w.d", OpFCVTWUD: "fcvt.wu.d",
	OpFCVTDW: "fcvt.d.w", OpFCVTDWU: "fcvt.d.wu",

	OpVSETVLI: "vsetvli", OpVSETIVLI: "vsetivli", OpVSETVL: "vsetvl",
	OpVLE8: "vle8.v", OpVLE16: "vle16.v", OpVLE32: "vle32.v",
	OpVSE8: "vse8.v", OpVSE16: "vse16.v", OpVSE32: "vse32.v",
	OpVADDVV: "vadd.vv", OpVADDVX: "vadd.vx", OpVADDVI: "vadd.vi",
	OpVSUBVV: "vsub.vv", OpVSUBVX: "vsub.vx",
	OpVANDVV: "vand.vv", OpVANDVX: "vand.vx", OpVANDVI: "vand.vi",
	OpVORVV: "vor.vv", OpVORVX: "vor.vx", OpVORVI: "vor.vi",
	OpVXORVV: "vxor.vv", OpVXORVX: "vxor.vx", OpVXORVI: "vxor.vi",
	OpVMVVV: "vmv.v.v", OpVMVVX: "vmv.v.x", OpVMVVI: "vmv.v.i",
}
