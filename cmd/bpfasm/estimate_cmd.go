package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/svmpay/bpfasm"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/dis"
	"github.com/svmpay/bpfasm/internal/table"
)

type estimateReport struct {
	Instructions int            `json:"instructions"`
	ComputeUnits int            `json:"compute_units"`
	Budget       int            `json:"budget,omitempty"`
	ByClass      map[string]int `json:"by_class"`
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate [file]",
		Short: "Estimate the compute units used by a program",
		Long: "Estimate compute units for a .toml manifest, a bytecode image or a\n" +
			"build bundle.",
		Args: cobra.MaximumNArgs(1),
		RunE: estimateHandler,
	}
	cmd.Flags().Bool("stdin", false, "Read bytecode from stdin")
	cmd.Flags().Bool("bundle", false, "Treat the input as a CBOR build bundle")
	return cmd
}

func estimateHandler(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}
	opts, err := getSDKOptions(cmd)
	if err != nil {
		return err
	}
	sdk := bpfasm.New(opts...)

	var report estimateReport
	if len(args) > 0 && filepath.Ext(args[0]) == ".toml" {
		m, err := getManifest(cmd, args)
		if err != nil {
			return err
		}
		instrs, err := m.Decode()
		if err != nil {
			return err
		}
		report.Instructions = len(instrs)
		report.ComputeUnits = sdk.Estimate(instrs)
		report.ByClass = classNames(sdk, instrs)
	} else {
		image, _, err := getImage(cmd, args)
		if err != nil {
			return err
		}
		words, err := dis.Disassemble(image)
		if err != nil {
			return err
		}
		instrs := dis.Instructions(words)
		report.Instructions = len(instrs)
		report.ComputeUnits = sdk.Estimator().EstimateImage(image)
		report.ByClass = classNames(sdk, instrs)
	}
	report.Budget = getBudget()

	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := getOutputJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		printEstimate(cmd, report)
	}
	if report.Budget > 0 && report.ComputeUnits > report.Budget {
		return &bpfasm.BudgetError{Units: report.ComputeUnits, Limit: report.Budget}
	}
	return nil
}

func getBudget() int {
	return viper.GetInt("max-compute-units")
}

func classNames(sdk *bpfasm.SDK, instrs []bytecode.Instruction) map[string]int {
	out := map[string]int{}
	for class, units := range sdk.Estimator().Breakdown(instrs) {
		out[class.String()] = units
	}
	return out
}

func printEstimate(cmd *cobra.Command, report estimateReport) {
	classes := make([]string, 0, len(report.ByClass))
	for class := range report.ByClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	var rows [][]string
	for _, class := range classes {
		rows = append(rows, []string{class, fmt.Sprintf("%d", report.ByClass[class])})
	}
	rows = append(rows, []string{bold("total"), bold(fmt.Sprintf("%d", report.ComputeUnits))})
	table.NewTable(cmd.OutOrStdout()).
		WithHeader([]string{"CLASS", "UNITS"}).
		WithColumnAlignment([]table.Alignment{table.AlignLeft, table.AlignRight}).
		WithRows(rows).
		Render()
	if report.Budget > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "budget %d (%d remaining)\n",
			report.Budget, report.Budget-report.ComputeUnits)
	}
}
