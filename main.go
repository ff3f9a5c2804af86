// Package main provides the entry point stub for rvsim.
// rvsim is a functional RV32 (G + V + Zb*) instruction-set simulator.
//
// For the full CLI, use: go run ./cmd/rvsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvsim - RV32GV functional simulator")
	fmt.Println("")
	fmt.Println("Usage: rvsim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -i, -interactive   Interactive debug shell")
	fmt.Println("  -semihost_htif     HTIF semihosting")
	fmt.Println("  -semihost_arm      ARM semihosting")
	fmt.Println("  -stack_size        Software stack size")
	fmt.Println("  -stack_end         Bottom address of the software stack")
	fmt.Println("  -exit_on_ecall     Halt cleanly on ecall")
	fmt.Println("  -output_dir        Directory for the counter export")
	fmt.Println("  -v                 Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvsim' instead.")
	}
}
