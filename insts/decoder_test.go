package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("RV32I", func() {
		// ADDI x1, x0, 10 -> 0x00A00093
		It("should decode ADDI x1, x0, 10", func() {
			inst := decoder.Decode(0x1000, 0x00A00093)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int32(10)))
			Expect(inst.Size).To(Equal(uint32(4)))
			Expect(inst.Addr).To(Equal(uint32(0x1000)))
		})

		// ADDI with a negative immediate: ADDI x1, x1, -1 -> 0xFFF08093
		It("should sign-extend the I immediate", func() {
			inst := decoder.Decode(0, 0xFFF08093)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Imm).To(Equal(int32(-1)))
		})

		// ADD x2, x1, x1 -> 0x00108133
		It("should decode ADD x2, x1, x1", func() {
			inst := decoder.Decode(0, 0x00108133)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(1)))
		})

		// SUB x3, x4, x5 -> 0x405201B3
		It("should decode SUB x3, x4, x5", func() {
			inst := decoder.Decode(0, 0x405201B3)

			Expect(inst.Op).To(Equal(insts.OpSUB))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(4)))
			Expect(inst.Rs2).To(Equal(uint8(5)))
		})

		// LW x5, 8(x2) -> 0x00812283
		It("should decode LW x5, 8(x2)", func() {
			inst := decoder.Decode(0, 0x00812283)

			Expect(inst.Op).To(Equal(insts.OpLW))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// SW x5, 12(x2) -> 0x00512623
		It("should decode SW x5, 12(x2)", func() {
			inst := decoder.Decode(0, 0x00512623)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(5)))
			Expect(inst.Imm).To(Equal(int32(12)))
		})

		// BEQ x1, x2, +8 -> 0x00208463
		It("should decode BEQ x1, x2, 8", func() {
			inst := decoder.Decode(0, 0x00208463)

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})

		// BNE x1, x0, -4 -> imm13 = -4
		// Encoding: imm[12]=1 imm[10:5]=111111 rs2=0 rs1=1 001 imm[4:1]=1110 imm[11]=1 1100011
		It("should decode a backward BNE", func() {
			inst := decoder.Decode(0, 0xFE009EE3)

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Imm).To(Equal(int32(-4)))
		})

		// JAL x1, 16 -> 0x010000EF
		It("should decode JAL x1, 16", func() {
			inst := decoder.Decode(0, 0x010000EF)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(int32(16)))
		})

		// JALR x0, 0(x1) -> 0x00008067
		It("should decode JALR x0, 0(x1)", func() {
			inst := decoder.Decode(0, 0x00008067)

			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Rd).To(Equal(uint8(0)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
		})

		// LUI x5, 0x12345 -> 0x123452B7
		It("should decode LUI x5, 0x12345", func() {
			inst := decoder.Decode(0, 0x123452B7)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(uint32(inst.Imm)).To(Equal(uint32(0x12345000)))
		})

		// SRAI x1, x2, 4 -> 0x40415093
		It("should decode SRAI x1, x2, 4", func() {
			inst := decoder.Decode(0, 0x40415093)

			Expect(inst.Op).To(Equal(insts.OpSRAI))
			Expect(inst.Format).To(Equal(insts.FormatIShift))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		It("should decode ECALL and EBREAK", func() {
			Expect(decoder.Decode(0, 0x00000073).Op).To(Equal(insts.OpECALL))
			Expect(decoder.Decode(0, 0x00100073).Op).To(Equal(insts.OpEBREAK))
		})

		It("should decode an unmatched word as illegal", func() {
			inst := decoder.Decode(0, 0xFFFFFFFF)
			Expect(inst.Op).To(Equal(insts.OpIllegal))
		})
	})

	Describe("Zicsr", func() {
		// CSRRW x5, 0x300, x6 -> 0x300312F3
		It("should decode CSRRW x5, mstatus, x6", func() {
			inst := decoder.Decode(0, 0x300312F3)

			Expect(inst.Op).To(Equal(insts.OpCSRRW))
			Expect(inst.Rd).To(Equal(uint8(5)))
			Expect(inst.Rs1).To(Equal(uint8(6)))
			Expect(inst.CSR).To(Equal(uint16(0x300)))
		})

		// CSRRSI x1, 0x001, 3 -> uimm=3 in rs1 field
		// 0x001<<20 | 3<<15 | 6<<12 | 1<<7 | 0x73 = 0x0011E0F3
		It("should decode CSRRSI with a zero-extended uimm", func() {
			inst := decoder.Decode(0, 0x0011E0F3)

			Expect(inst.Op).To(Equal(insts.OpCSRRSI))
			Expect(inst.Format).To(Equal(insts.FormatCSRI))
			Expect(inst.CSR).To(Equal(uint16(0x001)))
			Expect(inst.Imm).To(Equal(int32(3)))
		})
	})

	Describe("M extension", func() {
		// MUL x1, x2, x3 -> 0x023100B3
		It("should decode MUL x1, x2, x3", func() {
			inst := decoder.Decode(0, 0x023100B3)

			Expect(inst.Op).To(Equal(insts.OpMUL))
			Expect(inst.Rd).To(Equal(uint8(1)))
		})

		// DIVU x1, x2, x3 -> 0x023150B3
		It("should decode DIVU x1, x2, x3", func() {
			inst := decoder.Decode(0, 0x023150B3)
			Expect(inst.Op).To(Equal(insts.OpDIVU))
		})
	})

	Describe("A extension", func() {
		// LR.W x3, (x4) -> 0x100221AF
		It("should decode LR.W x3, (x4)", func() {
			inst := decoder.Decode(0, 0x100221AF)

			Expect(inst.Op).To(Equal(insts.OpLRW))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(4)))
		})

		// SC.W x3, x5, (x4) -> 0x185221AF
		It("should decode SC.W x3, x5, (x4)", func() {
			inst := decoder.Decode(0, 0x185221AF)

			Expect(inst.Op).To(Equal(insts.OpSCW))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(4)))
			Expect(inst.Rs2).To(Equal(uint8(5)))
		})

		// AMOADD.W with aq|rl set must still match: funct5=00000, aq=1, rl=1
		// 0x0000202F | 3<<25 (aq|rl) | 5<<20 | 4<<15 | 3<<7 -> 0x065221AF
		It("should ignore the aq/rl bits", func() {
			inst := decoder.Decode(0, 0x065221AF)
			Expect(inst.Op).To(Equal(insts.OpAMOADDW))
		})

		// AMOSWAP.W x2, x3, (x1) -> 0x0830A12F
		It("should decode AMOSWAP.W", func() {
			inst := decoder.Decode(0, 0x0830A12F)
			Expect(inst.Op).To(Equal(insts.OpAMOSWAPW))
			Expect(inst.Rd).To(Equal(uint8(2)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})
	})

	Describe("bit-manipulation extensions", func() {
		// SH2ADD x1, x2, x3 -> 0x203140B3
		It("should decode SH2ADD x1, x2, x3", func() {
			inst := decoder.Decode(0, 0x203140B3)

			Expect(inst.Op).To(Equal(insts.OpSH2ADD))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
		})

		// ANDN x1, x2, x3 -> 0x403170B3
		It("should decode ANDN x1, x2, x3", func() {
			inst := decoder.Decode(0, 0x403170B3)
			Expect(inst.Op).To(Equal(insts.OpANDN))
		})

		// CLZ x1, x2 -> 0x60011093
		It("should decode CLZ x1, x2", func() {
			inst := decoder.Decode(0, 0x60011093)

			Expect(inst.Op).To(Equal(insts.OpCLZ))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
		})

		// CTZ x1, x2 -> 0x60111093
		It("should decode CTZ x1, x2", func() {
			Expect(decoder.Decode(0, 0x60111093).Op).To(Equal(insts.OpCTZ))
		})

		// CPOP x1, x2 -> 0x60211093
		It("should decode CPOP x1, x2", func() {
			Expect(decoder.Decode(0, 0x60211093).Op).To(Equal(insts.OpCPOP))
		})

		// RORI x1, x2, 5 -> 0x60515093
		It("should decode RORI x1, x2, 5 rather than CLZ", func() {
			inst := decoder.Decode(0, 0x60515093)

			Expect(inst.Op).To(Equal(insts.OpRORI))
			Expect(inst.Imm).To(Equal(int32(5)))
		})

		// SEXT.B x1, x2 -> 0x60411093
		It("should decode SEXT.B x1, x2", func() {
			Expect(decoder.Decode(0, 0x60411093).Op).To(Equal(insts.OpSEXTB))
		})

		// ZEXT.H x1, x2 -> 0x080140B3
		It("should decode ZEXT.H x1, x2", func() {
			Expect(decoder.Decode(0, 0x080140B3).Op).To(Equal(insts.OpZEXTH))
		})

		// ORC.B x1, x2 -> 0x28715093
		It("should decode ORC.B x1, x2", func() {
			Expect(decoder.Decode(0, 0x28715093).Op).To(Equal(insts.OpORCB))
		})

		// REV8 x1, x2 -> 0x69815093
		It("should decode REV8 x1, x2", func() {
			Expect(decoder.Decode(0, 0x69815093).Op).To(Equal(insts.OpREV8))
		})

		// CLMUL x1, x2, x3 -> 0x0A3110B3
		It("should decode CLMUL x1, x2, x3", func() {
			Expect(decoder.Decode(0, 0x0A3110B3).Op).To(Equal(insts.OpCLMUL))
		})

		// CLMULH x1, x2, x3 -> 0x0A3130B3
		It("should decode CLMULH x1, x2, x3", func() {
			Expect(decoder.Decode(0, 0x0A3130B3).Op).To(Equal(insts.OpCLMULH))
		})

		// BSET x1, x2, x3 -> 0x283110B3
		It("should decode BSET x1, x2, x3", func() {
			Expect(decoder.Decode(0, 0x283110B3).Op).To(Equal(insts.OpBSET))
		})

		// BEXTI x1, x2, 7 -> 0x48715093
		It("should decode BEXTI x1, x2, 7", func() {
			inst := decoder.Decode(0, 0x48715093)

			Expect(inst.Op).To(Equal(insts.OpBEXTI))
			Expect(inst.Imm).To(Equal(int32(7)))
		})
	})

	Describe("F/D extensions", func() {
		// FADD.S f1, f2, f3 -> 0x003100D3
		It("should decode FADD.S f1, f2, f3", func() {
			inst := decoder.Decode(0, 0x003100D3)

			Expect(inst.Op).To(Equal(insts.OpFADDS))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(3)))
			Expect(inst.Rm).To(Equal(uint8(0)))
		})

		// FADD.D f1, f2, f3 dynamic rm -> 0x023170D3
		It("should decode FADD.D with dynamic rounding", func() {
			inst := decoder.Decode(0, 0x023170D3)

			Expect(inst.Op).To(Equal(insts.OpFADDD))
			Expect(inst.Rm).To(Equal(uint8(7)))
		})

		// FMADD.S f1, f2, f3, f4 -> rs3=4: 0x203100C3
		It("should decode FMADD.S f1, f2, f3, f4", func() {
			inst := decoder.Decode(0, 0x203100C3)

			Expect(inst.Op).To(Equal(insts.OpFMADDS))
			Expect(inst.Format).To(Equal(insts.FormatR4))
			Expect(inst.Rs3).To(Equal(uint8(4)))
		})

		// FSQRT.S f1, f2 -> 0x580170D3
		It("should decode FSQRT.S f1, f2", func() {
			Expect(decoder.Decode(0, 0x580170D3).Op).To(Equal(insts.OpFSQRTS))
		})

		// FCVT.W.S x1, f2, rtz -> 0xC00110D3
		It("should decode FCVT.W.S with RTZ", func() {
			inst := decoder.Decode(0, 0xC00110D3)

			Expect(inst.Op).To(Equal(insts.OpFCVTWS))
			Expect(inst.Rm).To(Equal(uint8(1)))
		})

		// FLW f1, 4(x2) -> 0x00412087
		It("should decode FLW f1, 4(x2)", func() {
			inst := decoder.Decode(0, 0x00412087)

			Expect(inst.Op).To(Equal(insts.OpFLW))
			Expect(inst.Imm).To(Equal(int32(4)))
		})

		// FSD f3, 8(x2) -> 0x00313427
		It("should decode FSD f3, 8(x2)", func() {
			inst := decoder.Decode(0, 0x00313427)

			Expect(inst.Op).To(Equal(insts.OpFSD))
			Expect(inst.Rs2).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(int32(8)))
		})
	})

	Describe("V extension", func() {
		// VSETVLI x1, x2, e32,m1 -> 0x010170D7
		It("should decode VSETVLI", func() {
			inst := decoder.Decode(0, 0x010170D7)

			Expect(inst.Op).To(Equal(insts.OpVSETVLI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int32(0x10)))
		})

		// VADD.VV v1, v2, v3 (unmasked): funct6=000000 vm=1 vs2=2 vs1=3 000 vd=1
		// -> 0x022180D7
		It("should decode VADD.VV", func() {
			inst := decoder.Decode(0, 0x022180D7)

			Expect(inst.Op).To(Equal(insts.OpVADDVV))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(3)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Vm).To(BeTrue())
		})

		// VADD.VI v1, v2, -3 (masked): vm=0, simm5=-3 (0b11101=29)
		// -> 0x002EB0D7
		It("should decode VADD.VI with a negative simm5 and mask", func() {
			inst := decoder.Decode(0, 0x002EB0D7)

			Expect(inst.Op).To(Equal(insts.OpVADDVI))
			Expect(inst.Imm).To(Equal(int32(-3)))
			Expect(inst.Vm).To(BeFalse())
		})

		// VLE32.V v1, (x2) unmasked, vle32 opcode 0x07:
		// nf=0 mew=0 mop=00 vm=1 lumop=00000 rs1=2 width=110 vd=1 0000111
		// -> 0x02016087
		It("should decode VLE32.V", func() {
			inst := decoder.Decode(0, 0x02016087)

			Expect(inst.Op).To(Equal(insts.OpVLE32))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Vm).To(BeTrue())
		})
	})

	Describe("disassembly", func() {
		It("should print R-format instructions", func() {
			inst := decoder.Decode(0, 0x00108133)
			Expect(inst.String()).To(Equal("add x2, x1, x1"))
		})

		It("should print loads with the offset form", func() {
			inst := decoder.Decode(0, 0x00812283)
			Expect(inst.String()).To(Equal("lw x5, 8(x2)"))
		})
	})
})
