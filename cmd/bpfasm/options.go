package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/svmpay/bpfasm"
	"github.com/svmpay/bpfasm/artifact"
	"github.com/svmpay/bpfasm/elfimage"
	"github.com/svmpay/bpfasm/history"
	"github.com/svmpay/bpfasm/manifest"
	"github.com/svmpay/bpfasm/syscalls"
)

func getNetwork() (syscalls.Network, error) {
	return syscalls.ParseNetwork(viper.GetString("network"))
}

func getLogger(cmd *cobra.Command) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("log-level")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:     cmd.ErrOrStderr(),
		NoColor: color.NoColor,
	}).Level(level).With().Timestamp().Logger()
}

func getSDKOptions(cmd *cobra.Command) ([]bpfasm.Option, error) {
	network, err := getNetwork()
	if err != nil {
		return nil, err
	}
	opts := []bpfasm.Option{
		bpfasm.WithNetwork(network),
		bpfasm.WithLogger(getLogger(cmd)),
	}
	if units := viper.GetInt("max-compute-units"); units != 0 {
		opts = append(opts, bpfasm.WithMaxComputeUnits(units))
	}
	return opts, nil
}

// Reads a manifest from the path in args[0] or, with --stdin, from standard
// input. Without either, bpfasm.toml in the working directory is used.
func getManifest(cmd *cobra.Command, args []string) (*manifest.Manifest, error) {
	if len(args) == 0 && !cmd.Flags().Changed("stdin") {
		if _, err := os.Stat(manifest.FileName); err == nil {
			args = []string{manifest.FileName}
		}
	}
	data, err := getInput(cmd, args)
	if err != nil {
		return nil, err
	}
	return manifest.Parse(data)
}

func getInput(cmd *cobra.Command, args []string) ([]byte, error) {
	var stdinFlagSet bool
	if f := cmd.Flags().Lookup("stdin"); f != nil && f.Changed {
		stdinFlagSet = true
	}
	pathSupplied := len(args) > 0
	if pathSupplied && stdinFlagSet {
		return nil, errors.New("multiple input sources specified")
	}
	if stdinFlagSet {
		return io.ReadAll(cmd.InOrStdin())
	}
	if pathSupplied {
		return os.ReadFile(args[0])
	}
	return nil, errors.New("no input: pass a file or --stdin")
}

// Returns the bytecode image read from args[0] or stdin.
func getImage(cmd *cobra.Command, args []string) ([]byte, *artifact.Bundle, error) {
	data, err := getInput(cmd, args)
	if err != nil {
		return nil, nil, err
	}
	return decodeImage(cmd, args, data)
}

// Returns the bytecode image in data. Bundles are recognized by their
// extension or by the --bundle flag and verified before use. ELF objects
// are recognized by their magic number and yield their program text.
func decodeImage(cmd *cobra.Command, args []string, data []byte) ([]byte, *artifact.Bundle, error) {
	if elfimage.IsELF(data) {
		img, err := elfimage.Parse(data)
		if err != nil {
			return nil, nil, err
		}
		if img.TextSection == "" {
			return nil, nil, errors.New("ELF object has no .text section")
		}
		return img.Text, nil, nil
	}
	isBundle, _ := cmd.Flags().GetBool("bundle")
	if len(args) > 0 && filepath.Ext(args[0]) == ".cbor" {
		isBundle = true
	}
	if !isBundle {
		return data, nil, nil
	}
	b, err := artifact.Unmarshal(data)
	if err != nil {
		return nil, nil, err
	}
	if err := b.Verify(); err != nil {
		return nil, nil, err
	}
	return b.Bytecode, b, nil
}

func openHistory(ctx context.Context, cmd *cobra.Command) (*history.Store, error) {
	dsn := viper.GetString("history.dsn")
	if dsn == "" {
		return nil, errors.New("no build history database configured (use --db or history.dsn)")
	}
	store, err := history.Open(ctx, dsn, history.WithLogger(getLogger(cmd)))
	if err != nil {
		return nil, fmt.Errorf("open build history: %w", err)
	}
	return store, nil
}

func getPublisher(ctx context.Context, cmd *cobra.Command) (*artifact.Publisher, error) {
	client, err := artifact.NewS3Client(ctx, artifact.S3Config{
		Region:          viper.GetString("s3.region"),
		Endpoint:        viper.GetString("s3.endpoint"),
		AccessKeyID:     viper.GetString("s3.access-key-id"),
		SecretAccessKey: viper.GetString("s3.secret-access-key"),
	})
	if err != nil {
		return nil, err
	}
	return artifact.NewPublisher(client, viper.GetString("s3.bucket"),
		artifact.WithPrefix(viper.GetString("s3.prefix")),
		artifact.WithLogger(getLogger(cmd))), nil
}
