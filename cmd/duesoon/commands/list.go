package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists upcoming assignments from the local store.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		svc, cleanup := openService(cfg)
		defer cleanup()

		items, err := svc.Upcoming(cmd.Context())
		if err != nil {
			fatal("failed to build upcoming view", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Course", "Assignment", "Due", "Status"})
		for _, item := range items {
			due := item.DueText
			if item.DueAt != nil {
				due = item.DueAt.Format("Mon Jan 2 3:04PM")
			}
			t.AppendRow(table.Row{item.CourseName, item.Name, due, string(item.Badge)})
		}
		t.Render()
	},
}
