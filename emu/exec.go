package emu

import "github.com/sarchlab/rvsim/insts"

// SemanticFn executes one decoded instruction against the state. The run
// loop sets PC to the next sequential address before calling it; control
// transfer semantics overwrite PC.
type SemanticFn func(*State, *insts.Instruction)

// SemanticOf returns the semantic function bound to op. Unknown opcodes
// get the illegal-instruction semantic, which records a trap.
func SemanticOf(op insts.Op) SemanticFn {
	if int(op) < len(semantics) && semantics[op] != nil {
		return semantics[op]
	}
	return execIllegal
}

func execIllegal(s *State, i *insts.Instruction) {
	s.Trap(TrapIllegalInstruction, i.Addr, i.Raw)
}

var semantics = [insts.NumOps]SemanticFn{
	insts.OpLUI:    execLui,
	insts.OpAUIPC:  execAuipc,
	insts.OpJAL:    execJal,
	insts.OpJALR:   execJalr,
	insts.OpBEQ:    execBeq,
	insts.OpBNE:    execBne,
	insts.OpBLT:    execBlt,
	insts.OpBGE:    execBge,
	insts.OpBLTU:   execBltu,
	insts.OpBGEU:   execBgeu,
	insts.OpLB:     execLb,
	insts.OpLH:     execLh,
	insts.OpLW:     execLw,
	insts.OpLBU:    execLbu,
	insts.OpLHU:    execLhu,
	insts.OpSB:     execSb,
	insts.OpSH:     execSh,
	insts.OpSW:     execSw,
	insts.OpADDI:   execAddi,
	insts.OpSLTI:   execSlti,
	insts.OpSLTIU:  execSltiu,
	insts.OpXORI:   execXori,
	insts.OpORI:    execOri,
	insts.OpANDI:   execAndi,
	insts.OpSLLI:   execSlli,
	insts.OpSRLI:   execSrli,
	insts.OpSRAI:   execSrai,
	insts.OpADD:    execAdd,
	insts.OpSUB:    execSub,
	insts.OpSLL:    execSll,
	insts.OpSLT:    execSlt,
	insts.OpSLTU:   execSltu,
	insts.OpXOR:    execXor,
	insts.OpSRL:    execSrl,
	insts.OpSRA:    execSra,
	insts.OpOR:     execOr,
	insts.OpAND:    execAnd,
	insts.OpFENCE:  execFence,
	insts.OpFENCEI: execFence,
	insts.OpECALL:  execEcall,
	insts.OpEBREAK: execEbreak,

	insts.OpCSRRW:  execCsrrw,
	insts.OpCSRRS:  execCsrrs,
	insts.OpCSRRC:  execCsrrc,
	insts.OpCSRRWI: execCsrrwi,
	insts.OpCSRRSI: execCsrrsi,
	insts.OpCSRRCI: execCsrrci,

	insts.OpMUL:    execMul,
	insts.OpMULH:   execMulh,
	insts.OpMULHSU: execMulhsu,
	insts.OpMULHU:  execMulhu,
	insts.OpDIV:    execDiv,
	insts.OpDIVU:   execDivu,
	insts.OpREM:    execRem,
	insts.OpREMU:   execRemu,

	insts.OpLRW:      execLrw,
	insts.OpSCW:      execScw,
	insts.OpAMOSWAPW: amoSemantic(AmoOpSwap),
	insts.OpAMOADDW:  amoSemantic(AmoOpAdd),
	insts.OpAMOXORW:  amoSemantic(AmoOpXor),
	insts.OpAMOANDW:  amoSemantic(AmoOpAnd),
	insts.OpAMOORW:   amoSemantic(AmoOpOr),
	insts.OpAMOMINW:  amoSemantic(AmoOpMin),
	insts.OpAMOMAXW:  amoSemantic(AmoOpMax),
	insts.OpAMOMINUW: amoSemantic(AmoOpMinu),
	insts.OpAMOMAXUW: amoSemantic(AmoOpMaxu),

	insts.OpSH1ADD: shAddSemantic(1),
	insts.OpSH2ADD: shAddSemantic(2),
	insts.OpSH3ADD: shAddSemantic(3),

	insts.OpANDN:  execAndn,
	insts.OpORN:   execOrn,
	insts.OpXNOR:  execXnor,
	insts.OpCLZ:   execClz,
	insts.OpCTZ:   execCtz,
	insts.OpCPOP:  execCpop,
	insts.OpMAX:   execMax,
	insts.OpMAXU:  execMaxu,
	insts.OpMIN:   execMin,
	insts.OpMINU:  execMinu,
	insts.OpSEXTB: execSextb,
	insts.OpSEXTH: execSexth,
	insts.OpZEXTH: execZexth,
	insts.OpROL:   execRol,
	insts.OpROR:   execRor,
	insts.OpRORI:  execRori,
	insts.OpORCB:  execOrcb,
	insts.OpREV8:  execRev8,

	insts.OpCLMUL:  execClmul,
	insts.OpCLMULH: execClmulh,
	insts.OpCLMULR: execClmulr,

	insts.OpBCLR:  execBclr,
	insts.OpBCLRI: execBclri,
	insts.OpBSET:  execBset,
	insts.OpBSETI: execBseti,
	insts.OpBINV:  execBinv,
	insts.OpBINVI: execBinvi,
	insts.OpBEXT:  execBext,
	insts.OpBEXTI: execBexti,

	insts.OpFLW:     execFlw,
	insts.OpFSW:     execFsw,
	insts.OpFMADDS:  execFmadds,
	insts.OpFMSUBS:  execFmsubs,
	insts.OpFNMSUBS: execFnmsubs,
	insts.OpFNMADDS: execFnmadds,
	insts.OpFADDS:   execFadds,
	insts.OpFSUBS:   execFsubs,
	insts.OpFMULS:   execFmuls,
	insts.OpFDIVS:   execFdivs,
	insts.OpFSQRTS:  execFsqrts,
	insts.OpFSGNJS:  execFsgnjs,
	insts.OpFSGNJNS: execFsgnjns,
	insts.OpFSGNJXS: execFsgnjxs,
	insts.OpFMINS:   execFmins,
	insts.OpFMAXS:   execFmaxs,
	insts.OpFCVTWS:  execFcvtws,
	insts.OpFCVTWUS: execFcvtwus,
	insts.OpFMVXW:   execFmvxw,
	insts.OpFEQS:    execFeqs,
	insts.OpFLTS:    execFlts,
	insts.OpFLES:    execFles,
	insts.OpFCLASSS: execFclasss,
	insts.OpFCVTSW:  execFcvtsw,
	insts.OpFCVTSWU: execFcvtswu,
	insts.OpFMVWX:   execFmvwx,

	insts.OpFLD:     execFld,
	insts.OpFSD:     execFsd,
	insts.OpFMADDD:  execFmaddd,
	insts.OpFMSUBD:  execFmsubd,
	insts.OpFNMSUBD: execFnmsubd,
	insts.OpFNMADDD: execFnmaddd,
	insts.OpFADDD:   execFaddd,
	insts.OpFSUBD:   execFsubd,
	insts.OpFMULD:   execFmuld,
	insts.OpFDIVD:   execFdivd,
	insts.OpFSQRTD:  execFsqrtd,
	insts.OpFSGNJD:  execFsgnjd,
	insts.OpFSGNJND: execFsgnjnd,
	insts.OpFSGNJXD: execFsgnjxd,
	insts.OpFMIND:   execFmind,
	insts.OpFMAXD:   execFmaxd,
	insts.OpFCVTSD:  execFcvtsd,
	insts.OpFCVTDS:  execFcvtds,
	insts.OpFEQD:    execFeqd,
	insts.OpFLTD:    execFltd,
	insts.OpFLED:    execFled,
	insts.OpFCLASSD: execFclassd,
	insts.OpFCVTWD:  execFcvtwd,
	insts.OpFCVTWUD: execFcvtwud,
	insts.OpFCVTDW:  execFcvtdw,
	insts.OpFCVTDWU: execFcvtdwu,

	insts.OpVSETVLI:  execVsetvli,
	insts.OpVSETIVLI: execVsetivli,
	insts.OpVSETVL:   execVsetvl,
	insts.OpVLE8:     vloadSemantic(8),
	insts.OpVLE16:    vloadSemantic(16),
	insts.OpVLE32:    vloadSemantic(32),
	insts.OpVSE8:     vstoreSemantic(8),
	insts.OpVSE16:    vstoreSemantic(16),
	insts.OpVSE32:    vstoreSemantic(32),
	insts.OpVADDVV:   vBinarySemantic(srcVV, func(a, b uint32) uint32 { return a + b }),
	insts.OpVADDVX:   vBinarySemantic(srcVX, func(a, b uint32) uint32 { return a + b }),
	insts.OpVADDVI:   vBinarySemantic(srcVI, func(a, b uint32) uint32 { return a + b }),
	insts.OpVSUBVV:   vBinarySemantic(srcVV, func(a, b uint32) uint32 { return a - b }),
	insts.OpVSUBVX:   vBinarySemantic(srcVX, func(a, b uint32) uint32 { return a - b }),
	insts.OpVANDVV:   vBinarySemantic(srcVV, func(a, b uint32) uint32 { return a & b }),
	insts.OpVANDVX:   vBinarySemantic(srcVX, func(a, b uint32) uint32 { return a & b }),
	insts.OpVANDVI:   vBinarySemantic(srcVI, func(a, b uint32) uint32 { return a & b }),
	insts.OpVORVV:    vBinarySemantic(srcVV, func(a, b uint32) uint32 { return a | b }),
	insts.OpVORVX:    vBinarySemantic(srcVX, func(a, b uint32) uint32 { return a | b }),
	insts.OpVORVI:    vBinarySemantic(srcVI, func(a, b uint32) uint32 { return a | b }),
	insts.OpVXORVV:   vBinarySemantic(srcVV, func(a, b uint32) uint32 { return a ^ b }),
	insts.OpVXORVX:   vBinarySemantic(srcVX, func(a, b uint32) uint32 { return a ^ b }),
	insts.OpVXORVI:   vBinarySemantic(srcVI, func(a, b uint32) uint32 { return a ^ b }),
	insts.OpVMVVV:    execVmvvv,
	insts.OpVMVVX:    execVmvvx,
	insts.OpVMVVI:    execVmvvi,
}
