package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rowCountCmd)
}

var rowCountCmd = &cobra.Command{
	Use:   "rowcount file-name.sdc",
	Short: "Prints the count of rows in the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, closeFn, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Println("Total RowCount:", reader.NumberOfRows())
		return nil
	},
}
