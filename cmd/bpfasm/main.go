package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bpfasm",
		Short:         "Assemble, inspect and publish BPF programs for SVM networks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			processGlobalFlags()
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bpfasm.yaml)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.StringP("network", "n", "solana", "Target network (solana, sonic, eclipse, soon)")
	flags.StringP("output", "o", "", "Output format (json, text)")
	flags.String("db", "", "Build history database URL, e.g. sqlite:/path/history.db")
	flags.Int("max-compute-units", 0, "Compute budget enforced when building bundles")

	bindFlag(root, "no-color", "no-color")
	bindFlag(root, "log-level", "log-level")
	bindFlag(root, "network", "network")
	bindFlag(root, "output", "output")
	bindFlag(root, "history.dsn", "db")
	bindFlag(root, "max-compute-units", "max-compute-units")

	root.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(
		outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp))
	root.RegisterFlagCompletionFunc("network", cobra.FixedCompletions(
		networkCompletion(), cobra.ShellCompDirectiveNoFileComp))

	root.AddCommand(
		newCompileCmd(),
		newDisCmd(),
		newValidateCmd(),
		newEstimateCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

func bindFlag(cmd *cobra.Command, key, name string) {
	flag := cmd.PersistentFlags().Lookup(name)
	if flag == nil {
		flag = cmd.Flags().Lookup(name)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}

// initConfig reads in the config file and BPFASM_ environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fatal(err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".bpfasm")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("bpfasm")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "%s\n", yellow(fmt.Sprintf("warning: %v", err)))
		}
	}
}
