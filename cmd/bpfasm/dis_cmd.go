package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/dis"
)

func newDisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a bytecode image, ELF object or build bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE:  disHandler,
	}
	cmd.Flags().Bool("stdin", false, "Read bytecode from stdin")
	cmd.Flags().Bool("bundle", false, "Treat the input as a CBOR build bundle")
	return cmd
}

func disHandler(cmd *cobra.Command, args []string) error {
	image, bundle, err := getImage(cmd, args)
	if err != nil {
		return err
	}
	network, err := getNetwork()
	if err != nil {
		return err
	}
	// A bundle names the network its syscalls were numbered for.
	if bundle != nil && len(bundle.Networks) > 0 && !cmd.Flags().Changed("network") {
		network = bundle.Networks[0]
	}
	instructions, err := dis.Disassemble(image, dis.WithNetwork(network))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	dis.Print(instructions, out)
	fmt.Fprintln(out, formatStats(bytecode.ComputeStats(image)))
	return nil
}
