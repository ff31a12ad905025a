package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/mailmerge/internal/config"
)

func newListsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show the configured recipient lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.loadSettings(cmd.Flags())
			if err != nil {
				return err
			}
			lists, err := config.LoadLists(settings.ListsFile)
			if err != nil {
				return err
			}
			return printLists(cmd.OutOrStdout(), lists)
		},
	}
}

func printLists(w io.Writer, lists *config.Lists) error {
	if lists.Len() == 0 {
		_, err := fmt.Fprintln(w, "No email lists configured.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSUBJECT\tTEMPLATE\tRECIPIENTS")
	for _, name := range lists.Names() {
		list, _ := lists.Get(name)
		template := list.Template
		if list.HTMLTemplate != "" {
			template += " (+" + list.HTMLTemplate + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", name, list.Subject, template, len(list.Recipients))
	}
	return tw.Flush()
}
