package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// defaultCommand runs when mailmerge is started without a subcommand.
const defaultCommand = "send"

// rootCmd represents the base command for the mailmerge application
var rootCmd = newRootCmd()

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "mailmerge",
		Short: "Sends templated emails to recipient lists through Gmail",
		Long: `mailmerge sends personalised emails to small named recipient lists
through the Gmail API.

Each list names a subject and a template in the templates directory. Every {}
in the template is replaced, in order, by the recipient's fill items, and a
"Dear <title>," greeting is added when the recipient has a title. Delivered
messages are recorded in an append-only send log.

The first run opens a browser to authorize sending with your Google account;
the credential is stored and refreshed automatically afterwards.`,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate(`{{printf "mailmerge version %s\n" .Version}}`)

	opts.addFlags(cmd)

	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newAuthCmd(opts))
	cmd.AddCommand(newListsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// withDefaultCommand inserts the default command when args name no subcommand.
func withDefaultCommand(cmd *cobra.Command, args []string) []string {
	if len(args) == 0 {
		return []string{defaultCommand}
	}
	if found, _, err := cmd.Find(args); err == nil && found != cmd {
		return args
	}
	switch args[0] {
	case "help", "--help", "-h", "--version", "-v", "completion", "__complete":
		return args
	}
	return append([]string{defaultCommand}, args...)
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetArgs(withDefaultCommand(rootCmd, os.Args[1:]))

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
