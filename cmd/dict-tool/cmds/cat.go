package cmds

import (
	"os"

	"github.com/spf13/cobra"
)

var catOpts catOptions

func init() {
	catCmd.PersistentFlags().BoolVar(&catOpts.lazy, "lazy", false, "Keep dictionary units in compact form")
	catCmd.PersistentFlags().BoolVar(&catOpts.ranks, "ranks", false, "Print the dictionary rank of values read lazily")
	catCmd.PersistentFlags().IntVar(&catOpts.batchSize, "batch-size", 1024, "Rows read per batch")
	rootCmd.AddCommand(catCmd)
}

var catCmd = &cobra.Command{
	Use:   "cat file-name.sdc",
	Short: "Print the file content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return catFile(os.Stdout, args[0], -1, catOpts)
	},
}
