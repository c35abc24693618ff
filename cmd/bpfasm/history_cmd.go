package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/svmpay/bpfasm/history"
	"github.com/svmpay/bpfasm/internal/table"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded builds",
	}
	list := &cobra.Command{
		Use:   "list [name]",
		Short: "List recorded builds, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  historyListHandler,
	}
	list.Flags().IntP("limit", "l", 20, "Maximum number of builds to list")
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded build",
		Args:  cobra.ExactArgs(1),
		RunE:  historyShowHandler,
	}
	cmd.AddCommand(list, show)
	return cmd
}

func historyListHandler(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openHistory(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var name string
	if len(args) > 0 {
		name = args[0]
	}
	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.List(ctx, name, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if records == nil {
			records = []history.Record{}
		}
		data, err := getOutputJSON(records)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no builds recorded")
		return nil
	}
	var rows [][]string
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			bold(r.Name),
			r.Version,
			fmt.Sprintf("%d", r.InstructionCount),
			fmt.Sprintf("%d", r.ComputeUnits),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	table.NewTable(out).
		WithHeader([]string{"ID", "NAME", "VERSION", "INSTRUCTIONS", "UNITS", "CREATED"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignRight,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithRows(rows).
		Render()
	return nil
}

func historyShowHandler(cmd *cobra.Command, args []string) error {
	format, err := getOutputFormat()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openHistory(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if format == "json" {
		data, err := getOutputJSON(r)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	networks := make([]string, len(r.Networks))
	for i, n := range r.Networks {
		networks[i] = string(n)
	}
	fmt.Fprintf(out, "%-13s %s\n", "id:", r.ID)
	fmt.Fprintf(out, "%-13s %s\n", "name:", bold(r.Name))
	fmt.Fprintf(out, "%-13s %s\n", "version:", r.Version)
	fmt.Fprintf(out, "%-13s %s\n", "type:", r.Type)
	fmt.Fprintf(out, "%-13s %s\n", "networks:", strings.Join(networks, ", "))
	fmt.Fprintf(out, "%-13s %d (%d bytes)\n", "instructions:", r.InstructionCount, r.SizeBytes)
	fmt.Fprintf(out, "%-13s %d\n", "units:", r.ComputeUnits)
	fmt.Fprintf(out, "%-13s %s\n", "checksum:", r.Checksum)
	fmt.Fprintf(out, "%-13s %s\n", "created:", r.CreatedAt.Format(time.RFC3339))
	return nil
}
