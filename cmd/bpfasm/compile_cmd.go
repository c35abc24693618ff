package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/svmpay/bpfasm"
	"github.com/svmpay/bpfasm/artifact"
	"github.com/svmpay/bpfasm/elfimage"
	"github.com/svmpay/bpfasm/history"
)

type compileSummary struct {
	Name         string   `json:"name"`
	Version      string   `json:"version,omitempty"`
	Instructions int      `json:"instructions"`
	Bytes        int      `json:"bytes"`
	ComputeUnits int      `json:"compute_units"`
	Warnings     []string `json:"warnings,omitempty"`
	Lint         []string `json:"lint,omitempty"`
	BuildID      string   `json:"build_id,omitempty"`
	ObjectKey    string   `json:"object_key,omitempty"`
	Assembly     string   `json:"assembly,omitempty"`
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [manifest]",
		Short: "Compile a program manifest to bytecode",
		Long: "Compile a bpfasm.toml program manifest. The assembly listing is printed;\n" +
			"bytecode, ELF objects and build bundles are written with --bytecode,\n" +
			"--elf and --bundle.",
		Args: cobra.MaximumNArgs(1),
		RunE: compileHandler,
	}
	flags := cmd.Flags()
	flags.Bool("stdin", false, "Read the manifest from stdin")
	flags.String("bytecode", "", "Write the bytecode image to this file")
	flags.String("elf", "", "Write the bytecode wrapped in an ELF object to this file")
	flags.String("bundle", "", "Write the CBOR build bundle to this file")
	flags.Bool("publish", false, "Publish the build bundle to S3")
	flags.Bool("record", false, "Record the build in the history database")
	flags.String("bucket", "", "S3 bucket for --publish")
	flags.String("prefix", "", "S3 key prefix for --publish")
	flags.String("region", "", "AWS region for --publish")
	flags.String("endpoint", "", "S3 endpoint URL for S3-compatible stores")

	bindFlag(cmd, "s3.bucket", "bucket")
	bindFlag(cmd, "s3.prefix", "prefix")
	bindFlag(cmd, "s3.region", "region")
	bindFlag(cmd, "s3.endpoint", "endpoint")
	return cmd
}

func compileHandler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, err := getOutputFormat()
	if err != nil {
		return err
	}
	m, err := getManifest(cmd, args)
	if err != nil {
		return err
	}
	meta, err := m.Metadata()
	if err != nil {
		return err
	}
	instrs, err := m.Decode()
	if err != nil {
		return err
	}
	opts, err := getSDKOptions(cmd)
	if err != nil {
		return err
	}
	sdk := bpfasm.New(append(opts, bpfasm.WithLayout(m.MemoryLayout()))...)
	builder := sdk.NewProgram(meta).AddInstructions(instrs...)

	result := builder.Compile()
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", yellow("warning:"), w)
	}
	if !result.Success {
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", red("error:"), e)
		}
		return fmt.Errorf("compilation of %s failed with %d error(s)", meta.Name, len(result.Errors))
	}

	summary := compileSummary{
		Name:         meta.Name,
		Version:      meta.Version,
		Instructions: result.InstructionCount,
		Bytes:        len(result.Bytecode),
		ComputeUnits: sdk.Estimate(instrs),
		Warnings:     result.Warnings,
	}
	for _, issue := range sdk.Lint(instrs) {
		summary.Lint = append(summary.Lint, issue.Severity.String()+": "+describeIssue(issue))
	}

	if path, _ := cmd.Flags().GetString("bytecode"); path != "" {
		if err := os.WriteFile(path, result.Bytecode, 0o644); err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("elf"); path != "" {
		if err := os.WriteFile(path, elfimage.Wrap(result.Bytecode, ""), 0o644); err != nil {
			return err
		}
	}

	bundlePath, _ := cmd.Flags().GetString("bundle")
	publish, _ := cmd.Flags().GetBool("publish")
	record, _ := cmd.Flags().GetBool("record")
	if bundlePath != "" || publish || record {
		bundle, err := sdk.Build(builder)
		if err != nil {
			return err
		}
		summary.BuildID = bundle.ID
		if bundlePath != "" {
			data, err := artifact.Marshal(bundle)
			if err != nil {
				return err
			}
			if err := os.WriteFile(bundlePath, data, 0o644); err != nil {
				return err
			}
		}
		if publish {
			publisher, err := getPublisher(ctx, cmd)
			if err != nil {
				return err
			}
			key, err := publisher.Publish(ctx, bundle)
			if err != nil {
				return err
			}
			summary.ObjectKey = key
		}
		if record {
			store, err := openHistory(ctx, cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Add(ctx, history.FromBundle(bundle)); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		summary.Assembly = result.Assembly
		data, err := getOutputJSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	for _, l := range summary.Lint {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", yellow("lint:"), l)
	}
	fmt.Fprintln(out, result.Assembly)
	fmt.Fprintf(out, "%s %s: %d instructions, %d bytes, %d compute units\n",
		green("compiled"), bold(meta.Name), summary.Instructions, summary.Bytes, summary.ComputeUnits)
	if summary.BuildID != "" {
		fmt.Fprintf(out, "build %s\n", summary.BuildID)
	}
	if summary.ObjectKey != "" {
		fmt.Fprintf(out, "published %s\n", summary.ObjectKey)
	}
	return nil
}
