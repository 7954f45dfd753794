package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yaaa-term/yaaa/internal/session"
)

func newGroupsCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Print the saved project groups and their tabs",
		Long:  "Print the saved project groups and their tabs. State is only read; a legacy groups.json is imported on the next interactive start.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := opts.paths()
			if err != nil {
				return err
			}
			store, err := session.OpenStorageForRead(paths)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, _ := store.LoadGroups()
			return writeGroups(cmd.OutOrStdout(), snap, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json or yaml")
	return cmd
}

func writeGroups(w io.Writer, snap session.Snapshot, format string) error {
	if snap.Groups == nil {
		snap.Groups = []session.GroupSnapshot{}
	}
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		return writeGroupsTable(w, snap)
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func writeGroupsTable(w io.Writer, snap session.Snapshot) error {
	if len(snap.Groups) == 0 {
		_, err := fmt.Fprintln(w, "No saved groups.")
		return err
	}
	rows := make([][]string, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		kinds := make([]string, 0, len(g.Tabs))
		for _, t := range g.Tabs {
			kinds = append(kinds, t.Kind.String())
		}
		rows = append(rows, []string{
			strconv.FormatUint(g.ID, 10),
			g.Name,
			g.Path,
			strings.Join(kinds, ", "),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "PATH", "TABS").
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
