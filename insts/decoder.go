// Package insts provides RV32 instruction definitions and decoding.
package insts

import (
	"math/bits"
	"sort"
)

// pattern is one row of the decode table: a fixed-bit match over the
// expanded 32-bit encoding selecting an opcode and its operand format.
type pattern struct {
	mask   uint32
	match  uint32
	op     Op
	format Format
}

// Field masks shared by the table rows.
const (
	maskOpcode  = 0x0000007F
	maskI       = 0x0000707F // opcode + funct3
	maskR       = 0xFE00707F // opcode + funct3 + funct7
	maskIFunct12 = 0xFFF0707F // opcode + funct3 + funct12 (unary Zbb, fmv, fclass)
	maskAMO     = 0xF800707F // opcode + funct3 + funct5 (aq/rl free)
	maskAMOLr   = 0xF9F0707F // lr.w additionally fixes rs2=0
	maskFP      = 0xFE00007F // opcode + funct7 (rm, rs2 free)
	maskFPUn    = 0xFFF0007F // opcode + funct7 + rs2 (rm free)
	maskR4      = 0x0600007F // opcode + fmt
	maskFull    = 0xFFFFFFFF
	maskVLdSt   = 0xFDF0707F // opcode + funct3 + mew/mop/lumop/nf (vm free)
	maskVArith  = 0xFC00707F // opcode + funct3 + funct6 (vm free)
	maskVMv     = 0xFFF0707F // vmv.v.* additionally fixes vm=1, vs2=0
)

var decodeTable = []pattern{
	// RV32I
	{maskOpcode, 0x00000037, OpLUI, FormatU},
	{maskOpcode, 0x00000017, OpAUIPC, FormatU},
	{maskOpcode, 0x0000006F, OpJAL, FormatJ},
	{maskI, 0x00000067, OpJALR, FormatI},
	{maskI, 0x00000063, OpBEQ, FormatB},
	{maskI, 0x00001063, OpBNE, FormatB},
	{maskI, 0x00004063, OpBLT, FormatB},
	{maskI, 0x00005063, OpBGE, FormatB},
	{maskI, 0x00006063, OpBLTU, FormatB},
	{maskI, 0x00007063, OpBGEU, FormatB},
	{maskI, 0x00000003, OpLB, FormatI},
	{maskI, 0x00001003, OpLH, FormatI},
	{maskI, 0x00002003, OpLW, FormatI},
	{maskI, 0x00004003, OpLBU, FormatI},
	{maskI, 0x00005003, OpLHU, FormatI},
	{maskI, 0x00000023, OpSB, FormatS},
	{maskI, 0x00001023, OpSH, FormatS},
	{maskI, 0x00002023, OpSW, FormatS},
	{maskI, 0x00000013, OpADDI, FormatI},
	{maskI, 0x00002013, OpSLTI, FormatI},
	{maskI, 0x00003013, OpSLTIU, FormatI},
	{maskI, 0x00004013, OpXORI, FormatI},
	{maskI, 0x00006013, OpORI, FormatI},
	{maskI, 0x00007013, OpANDI, FormatI},
	{maskR, 0x00001013, OpSLLI, FormatIShift},
	{maskR, 0x00005013, OpSRLI, FormatIShift},
	{maskR, 0x40005013, OpSRAI, FormatIShift},
	{maskR, 0x00000033, OpADD, FormatR},
	{maskR, 0x40000033, OpSUB, FormatR},
	{maskR, 0x00001033, OpSLL, FormatR},
	{maskR, 0x00002033, OpSLT, FormatR},
	{maskR, 0x00003033, OpSLTU, FormatR},
	{maskR, 0x00004033, OpXOR, FormatR},
	{maskR, 0x00005033, OpSRL, FormatR},
	{maskR, 0x40005033, OpSRA, FormatR},
	{maskR, 0x00006033, OpOR, FormatR},
	{maskR, 0x00007033, OpAND, FormatR},
	{maskI, 0x0000000F, OpFENCE, FormatSystem},
	{maskI, 0x0000100F, OpFENCEI, FormatSystem},
	{maskFull, 0x00000073, OpECALL, FormatSystem},
	{maskFull, 0x00100073, OpEBREAK, FormatSystem},

	// Zicsr
	{maskI, 0x00001073, OpCSRRW, FormatCSR},
	{maskI, 0x00002073, OpCSRRS, FormatCSR},
	{maskI, 0x00003073, OpCSRRC, FormatCSR},
	{maskI, 0x00005073, OpCSRRWI, FormatCSRI},
	{maskI, 0x00006073, OpCSRRSI, FormatCSRI},
	{maskI, 0x00007073, OpCSRRCI, FormatCSRI},

	// M
	{maskR, 0x02000033, OpMUL, FormatR},
	{maskR, 0x02001033, OpMULH, FormatR},
	{maskR, 0x02002033, OpMULHSU, FormatR},
	{maskR, 0x02003033, OpMULHU, FormatR},
	{maskR, 0x02004033, OpDIV, FormatR},
	{maskR, 0x02005033, OpDIVU, FormatR},
	{maskR, 0x02006033, OpREM, FormatR},
	{maskR, 0x02007033, OpREMU, FormatR},

	// A
	{maskAMOLr, 0x1000202F, OpLRW, FormatAMO},
	{maskAMO, 0x1800202F, OpSCW, FormatAMO},
	{maskAMO, 0x0800202F, OpAMOSWAPW, FormatAMO},
	{maskAMO, 0x0000202F, OpAMOADDW, FormatAMO},
	{maskAMO, 0x2000202F, OpAMOXORW, FormatAMO},
	{maskAMO, 0x6000202F, OpAMOANDW, FormatAMO},
	{maskAMO, 0x4000202F, OpAMOORW, FormatAMO},
	{maskAMO, 0x8000202F, OpAMOMINW, FormatAMO},
	{maskAMO, 0xA000202F, OpAMOMAXW, FormatAMO},
	{maskAMO, 0xC000202F, OpAMOMINUW, FormatAMO},
	{maskAMO, 0xE000202F, OpAMOMAXUW, FormatAMO},

	// Zba
	{maskR, 0x20002033, OpSH1ADD, FormatR},
	{maskR, 0x20004033, OpSH2ADD, FormatR},
	{maskR, 0x20006033, OpSH3ADD, FormatR},

	// Zbb
	{maskR, 0x40007033, OpANDN, FormatR},
	{maskR, 0x40006033, OpORN, FormatR},
	{maskR, 0x40004033, OpXNOR, FormatR},
	{maskIFunct12, 0x60001013, OpCLZ, FormatI},
	{maskIFunct12, 0x60101013, OpCTZ, FormatI},
	{maskIFunct12, 0x60201013, OpCPOP, FormatI},
	{maskR, 0x0A006033, OpMAX, FormatR},
	{maskR, 0x0A007033, OpMAXU, FormatR},
	{maskR, 0x0A004033, OpMIN, FormatR},
	{maskR, 0x0A005033, OpMINU, FormatR},
	{maskIFunct12, 0x60401013, OpSEXTB, FormatI},
	{maskIFunct12, 0x60501013, OpSEXTH, FormatI},
	{maskIFunct12, 0x08004033, OpZEXTH, FormatR},
	{maskR, 0x60001033, OpROL, FormatR},
	{maskR, 0x60005033, OpROR, FormatR},
	{maskR, 0x60005013, OpRORI, FormatIShift},
	{maskIFunct12, 0x28705013, OpORCB, FormatI},
	{maskIFunct12, 0x69805013, OpREV8, FormatI},

	// Zbc
	{maskR, 0x0A001033, OpCLMUL, FormatR},
	{maskR, 0x0A003033, OpCLMULH, FormatR},
	{maskR, 0x0A002033, OpCLMULR, FormatR},

	// Zbs
	{maskR, 0x48001033, OpBCLR, FormatR},
	{maskR, 0x48001013, OpBCLRI, FormatIShift},
	{maskR, 0x28001033, OpBSET, FormatR},
	{maskR, 0x28001013, OpBSETI, FormatIShift},
	{maskR, 0x68001033, OpBINV, FormatR},
	{maskR, 0x68001013, OpBINVI, FormatIShift},
	{maskR, 0x48005033, OpBEXT, FormatR},
	{maskR, 0x48005013, OpBEXTI, FormatIShift},

	// F
	{maskI, 0x00002007, OpFLW, FormatI},
	{maskI, 0x00002027, OpFSW, FormatS},
	{maskR4, 0x00000043, OpFMADDS, FormatR4},
	{maskR4, 0x00000047, OpFMSUBS, FormatR4},
	{maskR4, 0x0000004B, OpFNMSUBS, FormatR4},
	{maskR4, 0x0000004F, OpFNMADDS, FormatR4},
	{maskFP, 0x00000053, OpFADDS, FormatFP},
	{maskFP, 0x08000053, OpFSUBS, FormatFP},
	{maskFP, 0x10000053, OpFMULS, FormatFP},
	{maskFP, 0x18000053, OpFDIVS, FormatFP},
	{maskFPUn, 0x58000053, OpFSQRTS, FormatFP},
	{maskR, 0x20000053, OpFSGNJS, FormatFP},
	{maskR, 0x20001053, OpFSGNJNS, FormatFP},
	{maskR, 0x20002053, OpFSGNJXS, FormatFP},
	{maskR, 0x28000053, OpFMINS, FormatFP},
	{maskR, 0x28001053, OpFMAXS, FormatFP},
	{maskFPUn, 0xC0000053, OpFCVTWS, FormatFP},
	{maskFPUn, 0xC0100053, OpFCVTWUS, FormatFP},
	{maskIFunct12, 0xE0000053, OpFMVXW, FormatFP},
	{maskR, 0xA0002053, OpFEQS, FormatFP},
	{maskR, 0xA0001053, OpFLTS, FormatFP},
	{maskR, 0xA0000053, OpFLES, FormatFP},
	{maskIFunct12, 0xE0001053, OpFCLASSS, FormatFP},
	{maskFPUn, 0xD0000053, OpFCVTSW, FormatFP},
	{maskFPUn, 0xD0100053, OpFCVTSWU, FormatFP},
	{maskIFunct12, 0xF0000053, OpFMVWX, FormatFP},

	// D
	{maskI, 0x00003007, OpFLD, FormatI},
	{maskI, 0x00003027, OpFSD, FormatS},
	{maskR4, 0x02000043, OpFMADDD, FormatR4},
	{maskR4, 0x02000047, OpFMSUBD, FormatR4},
	{maskR4, 0x0200004B, OpFNMSUBD, FormatR4},
	{maskR4, 0x0200004F, OpFNMADDD, FormatR4},
	{maskFP, 0x02000053, OpFADDD, FormatFP},
	{maskFP, 0x0A000053, OpFSUBD, FormatFP},
	{maskFP, 0x12000053, OpFMULD, FormatFP},
	{maskFP, 0x1A000053, OpFDIVD, FormatFP},
	{maskFPUn, 0x5A000053, OpFSQRTD, FormatFP},
	{maskR, 0x22000053, OpFSGNJD, FormatFP},
	{maskR, 0x22001053, OpFSGNJND, FormatFP},
	{maskR, 0x22002053, OpFSGNJXD, FormatFP},
	{maskR, 0x2A000053, OpFMIND, FormatFP},
	{maskR, 0x2A001053, OpFMAXD, FormatFP},
	{maskFPUn, 0x40100053, OpFCVTSD, FormatFP},
	{maskFPUn, 0x42000053, OpFCVTDS, FormatFP},
	{maskR, 0xA2002053, OpFEQD, FormatFP},
	{maskR, 0xA2001053, OpFLTD, FormatFP},
	{maskR, 0xA2000053, OpFLED, FormatFP},
	{maskIFunct12, 0xE2001053, OpFCLASSD, FormatFP},
	{maskFPUn, 0xC2000053, OpFCVTWD, FormatFP},
	{maskFPUn, 0xC2100053, OpFCVTWUD, FormatFP},
	{maskFPUn, 0xD2000053, OpFCVTDW, FormatFP},
	{maskFPUn, 0xD2100053, OpFCVTDWU, FormatFP},

	// V configuration
	{0x8000707F, 0x00007057, OpVSETVLI, FormatVCfg},
	{0xC000707F, 0xC0007057, OpVSETIVLI, FormatVCfg},
	{maskR, 0x80007057, OpVSETVL, FormatVCfg},

	// V unit-stride loads/stores
	{maskVLdSt, 0x00000007, OpVLE8, FormatVMem},
	{maskVLdSt, 0x00005007, OpVLE16, FormatVMem},
	{maskVLdSt, 0x00006007, OpVLE32, FormatVMem},
	{maskVLdSt, 0x00000027, OpVSE8, FormatVMem},
	{maskVLdSt, 0x00005027, OpVSE16, FormatVMem},
	{maskVLdSt, 0x00006027, OpVSE32, FormatVMem},

	// V integer arithmetic
	{maskVArith, 0x00000057, OpVADDVV, FormatVArith},
	{maskVArith, 0x00004057, OpVADDVX, FormatVArith},
	{maskVArith, 0x00003057, OpVADDVI, FormatVArith},
	{maskVArith, 0x08000057, OpVSUBVV, FormatVArith},
	{maskVArith, 0x08004057, OpVSUBVX, FormatVArith},
	{maskVArith, 0x24000057, OpVANDVV, FormatVArith},
	{maskVArith, 0x24004057, OpVANDVX, FormatVArith},
	{maskVArith, 0x24003057, OpVANDVI, FormatVArith},
	{maskVArith, 0x28000057, OpVORVV, FormatVArith},
	{maskVArith, 0x28004057, OpVORVX, FormatVArith},
	{maskVArith, 0x28003057, OpVORVI, FormatVArith},
	{maskVArith, 0x2C000057, OpVXORVV, FormatVArith},
	{maskVArith, 0x2C004057, OpVXORVX, FormatVArith},
	{maskVArith, 0x2C003057, OpVXORVI, FormatVArith},
	{maskVMv, 0x5E000057, OpVMVVV, FormatVArith},
	{maskVMv, 0x5E004057, OpVMVVX, FormatVArith},
	{maskVMv, 0x5E003057, OpVMVVI, FormatVArith},
}

// Decoder decodes RV32 machine code into instructions. It is stateless;
// decode caching lives with the core, keyed by PC, so that stores into
// instruction memory can invalidate individual entries.
type Decoder struct {
	byOpcode [128][]pattern
}

// NewDecoder creates a new RV32 instruction decoder.
func NewDecoder() *Decoder {
	d := &Decoder{}
	for _, p := range decodeTable {
		op7 := p.match & maskOpcode
		d.byOpcode[op7] = append(d.byOpcode[op7], p)
	}
	// Most-specific pattern first within a bucket, so a row with more fixed
	// bits is tried before any looser row that could also match the word.
	for i := range d.byOpcode {
		bucket := d.byOpcode[i]
		sort.SliceStable(bucket, func(a, b int) bool {
			return bits.OnesCount32(bucket[a].mask) > bits.OnesCount32(bucket[b].mask)
		})
	}
	return d
}

// Decode decodes the instruction at addr. raw holds the 4 bytes fetched at
// addr; a compressed instruction occupies the low halfword and is expanded
// before operand binding. Unmatched encodings decode to OpIllegal.
func (d *Decoder) Decode(addr uint32, raw uint32) *Instruction {
	inst := &Instruction{Op: OpIllegal, Addr: addr, Size: 4, Raw: raw}

	word := raw
	if raw&0x3 != 0x3 {
		expanded, ok := ExpandCompressed(uint16(raw))
		if !ok {
			inst.Size = 2
			return inst
		}
		word = expanded
		inst.Size = 2
		inst.Raw = word
	}

	for _, p := range d.byOpcode[word&maskOpcode] {
		if word&p.mask == p.match {
			inst.Op = p.op
			inst.Format = p.format
			d.bindOperands(word, inst)
			return inst
		}
	}
	return inst
}

// bindOperands extracts the operand fields dictated by the format.
func (d *Decoder) bindOperands(word uint32, inst *Instruction) {
	rd := uint8(word >> 7 & 0x1F)
	rs1 := uint8(word >> 15 & 0x1F)
	rs2 := uint8(word >> 20 & 0x1F)

	switch inst.Format {
	case FormatR, FormatAMO:
		inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
	case FormatI:
		inst.Rd, inst.Rs1 = rd, rs1
		inst.Imm = int32(word) >> 20
	case FormatIShift:
		inst.Rd, inst.Rs1 = rd, rs1
		inst.Imm = int32(rs2) // shamt, zero-extended
	case FormatS:
		inst.Rs1, inst.Rs2 = rs1, rs2
		inst.Imm = (int32(word)>>25)<<5 | int32(word>>7&0x1F)
	case FormatB:
		inst.Rs1, inst.Rs2 = rs1, rs2
		inst.Imm = (int32(word)>>31)<<12 |
			int32(word>>7&0x1)<<11 |
			int32(word>>25&0x3F)<<5 |
			int32(word>>8&0xF)<<1
	case FormatU:
		inst.Rd = rd
		inst.Imm = int32(word & 0xFFFFF000)
	case FormatJ:
		inst.Rd = rd
		inst.Imm = (int32(word)>>31)<<20 |
			int32(word>>12&0xFF)<<12 |
			int32(word>>20&0x1)<<11 |
			int32(word>>21&0x3FF)<<1
	case FormatCSR:
		inst.Rd, inst.Rs1 = rd, rs1
		inst.CSR = uint16(word >> 20)
	case FormatCSRI:
		inst.Rd = rd
		inst.Imm = int32(rs1) // uimm5, zero-extended
		inst.CSR = uint16(word >> 20)
	case FormatR4:
		inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
		inst.Rs3 = uint8(word >> 27 & 0x1F)
		inst.Rm = uint8(word >> 12 & 0x7)
	case FormatFP:
		inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
		inst.Rm = uint8(word >> 12 & 0x7)
	case FormatVCfg:
		inst.Rd, inst.Rs1, inst.Rs2 = rd, rs1, rs2
		switch inst.Op {
		case OpVSETVLI:
			inst.Imm = int32(word >> 20 & 0x7FF)
		case OpVSETIVLI:
			inst.Imm = int32(word >> 20 & 0x3FF)
			// rs1 carries the immediate AVL for vsetivli.
		}
	case FormatVMem:
		inst.Rd, inst.Rs1 = rd, rs1
		inst.Vm = word>>25&0x1 == 1
	case FormatVArith:
		inst.Rd = rd
		inst.Rs2 = rs2 // vs2
		inst.Vm = word>>25&0x1 == 1
		switch word >> 12 & 0x7 {
		case 0x0: // OPIVV
			inst.Rs1 = rs1 // vs1
		case 0x4: // OPIVX
			inst.Rs1 = rs1 // scalar rs1
		case 0x3: // OPIVI
			inst.Imm = int32(word) << 12 >> 27 // simm5
		}
	case FormatSystem:
		inst.Rd, inst.Rs1 = rd, rs1
	}
}
