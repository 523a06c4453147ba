package cmds

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	recordCount *int64
	headOpts    catOptions
)

func init() {
	recordCount = headCmd.PersistentFlags().Int64P("records", "n", 5, "The number of records to show")
	headCmd.PersistentFlags().BoolVar(&headOpts.lazy, "lazy", false, "Keep dictionary units in compact form")
	headCmd.PersistentFlags().BoolVar(&headOpts.ranks, "ranks", false, "Print the dictionary rank of values read lazily")
	rootCmd.AddCommand(headCmd)
}

var headCmd = &cobra.Command{
	Use:   "head file-name.sdc",
	Short: "Prints the first n records of the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return catFile(os.Stdout, args[0], *recordCount, headOpts)
	},
}
