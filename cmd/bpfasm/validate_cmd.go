package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/svmpay/bpfasm"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/elfimage"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/validator"
)

type validateReport struct {
	Valid  bool            `json:"valid"`
	Issues []string        `json:"issues,omitempty"`
	Lint   []string        `json:"lint,omitempty"`
	Stats  *bytecode.Stats `json:"stats,omitempty"`
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a bytecode image, ELF object, build bundle or manifest",
		Long: "Validate bytecode structure. Given a .toml manifest, the program is\n" +
			"linted, compiled and its bytecode validated. ELF objects are checked\n" +
			"for their sections and entry point before their text is validated.",
		Args: cobra.MaximumNArgs(1),
		RunE: validateHandler,
	}
	cmd.Flags().Bool("stdin", false, "Read bytecode from stdin")
	cmd.Flags().Bool("bundle", false, "Treat the input as a CBOR build bundle")
	cmd.Flags().Bool("hints", false, "Include informational lint findings")
	return cmd
}

func validateHandler(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}
	opts, err := getSDKOptions(cmd)
	if err != nil {
		return err
	}
	hints, _ := cmd.Flags().GetBool("hints")
	opts = append(opts, bpfasm.WithLintHints(hints))

	var report validateReport
	var image []byte
	if len(args) > 0 && filepath.Ext(args[0]) == ".toml" {
		m, err := getManifest(cmd, args)
		if err != nil {
			return err
		}
		instrs, err := m.Decode()
		if err != nil {
			return err
		}
		sdk := bpfasm.New(append(opts, bpfasm.WithLayout(m.MemoryLayout()))...)
		failed := false
		for _, issue := range sdk.Lint(instrs) {
			report.Lint = append(report.Lint, issue.Severity.String()+": "+describeIssue(issue))
			failed = failed || issue.Severity == errors.SeverityError
		}
		result := sdk.Compile(instrs)
		report.Issues = append(report.Issues, result.Errors...)
		image = result.Bytecode
		if failed || !result.Success {
			return printValidateReport(cmd, format, report)
		}
		return finishValidate(cmd, format, report, image, sdk.Validate(image))
	}

	sdk := bpfasm.New(opts...)
	data, err := getInput(cmd, args)
	if err != nil {
		return err
	}
	if elfimage.IsELF(data) {
		result := sdk.ValidateELF(data)
		if img, err := elfimage.Parse(data); err == nil {
			image = img.Text
		}
		return finishValidate(cmd, format, report, image, result)
	}
	image, _, err = decodeImage(cmd, args, data)
	if err != nil {
		return err
	}
	return finishValidate(cmd, format, report, image, sdk.Validate(image))
}

func finishValidate(cmd *cobra.Command, format string, report validateReport, image []byte, result *validator.Result) error {
	report.Valid = result.Valid
	for _, issue := range result.Findings() {
		report.Issues = append(report.Issues, describeIssue(issue))
	}
	if len(image) > 0 {
		stats := bytecode.ComputeStats(image)
		report.Stats = &stats
	}
	return printValidateReport(cmd, format, report)
}

func printValidateReport(cmd *cobra.Command, format string, report validateReport) error {
	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := getOutputJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		for _, l := range report.Lint {
			fmt.Fprintf(out, "%s %s\n", yellow("lint:"), l)
		}
		for _, issue := range report.Issues {
			fmt.Fprintf(out, "%s %s\n", red("error:"), issue)
		}
		if report.Stats != nil {
			fmt.Fprintln(out, formatStats(*report.Stats))
		}
		if report.Valid {
			fmt.Fprintln(out, green("valid"))
		}
	}
	if !report.Valid {
		return fmt.Errorf("validation failed")
	}
	return nil
}
