package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
	"github.com/svmpay/bpfasm/bytecode"
	"github.com/svmpay/bpfasm/errors"
	"github.com/svmpay/bpfasm/syscalls"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var outputFormatsCompletion = []string{"json", "text"}

func networkCompletion() []string {
	var names []string
	for _, n := range syscalls.Networks() {
		names = append(names, string(n))
	}
	return names
}

// Returns the output format, defaulting to text.
func getOutputFormat() (string, error) {
	switch format := strings.ToLower(viper.GetString("output")); format {
	case "", "text":
		return "text", nil
	case "json":
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func getOutputJSON(result any) ([]byte, error) {
	if viper.GetBool("no-color") || color.NoColor {
		return json.MarshalIndent(result, "", "  ")
	}
	return prettyjson.Marshal(result)
}

// Reads global flags from Viper and adjusts the environment accordingly.
func processGlobalFlags() {
	if viper.GetBool("no-color") || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
}

// Formats an issue with its code, e.g.
// "word 3: last instruction is not EXIT (validate E2002: missing exit)".
func describeIssue(issue *errors.Issue) string {
	return fmt.Sprintf("%s (%s %s: %s)", issue, issue.Code.Category(), issue.Code, issue.Code.Description())
}

func formatStats(s bytecode.Stats) string {
	out := fmt.Sprintf("%d instructions, %d bytes, %d jumps, %d calls",
		s.InstructionCount, s.SizeBytes, s.JumpCount, s.CallCount)
	if s.UnknownCount > 0 {
		out += fmt.Sprintf(", %d unknown", s.UnknownCount)
	}
	return out
}
