package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fraugster/stringdict/format"
)

var dumpFooter *bool

func init() {
	dumpFooter = metaCmd.PersistentFlags().BoolP("dump", "d", false, "Dump the raw footer")
	rootCmd.AddCommand(metaCmd)
}

var metaCmd = &cobra.Command{
	Use:   "meta file-name.sdc",
	Short: "Print the stripes and units of the file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return metaFile(os.Stdout, args[0], *dumpFooter)
	},
}

func metaFile(w io.Writer, path string, dump bool) error {
	reader, closeFn, err := openFile(path)
	if err != nil {
		return err
	}
	defer closeFn()

	footer := reader.Footer()
	if dump {
		_, err := fmt.Fprint(w, spew.Sdump(footer))
		return err
	}

	fmt.Fprintln(w, "Schema:", reader.Schema())
	fmt.Fprintln(w, "Created by:", reader.CreatedBy())
	fmt.Fprintln(w, "File id:", reader.FileID())
	fmt.Fprintln(w, "Compression:", footer.Compression)
	fmt.Fprintln(w, "Row index stride:", footer.RowIndexStride)
	fmt.Fprintln(w, "Num rows:", reader.NumberOfRows())

	for i, stripe := range footer.Stripes {
		fmt.Fprintln(w, "\t Stripe:", i)
		fmt.Fprintln(w, "\t\t First row:", stripe.FirstRow)
		fmt.Fprintln(w, "\t\t Row count:", stripe.NumRows)
		fmt.Fprintln(w, "\t\t Size:", humanize.Bytes(uint64(stripe.Length)))

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Col", "FirstRow", "Rows", "Nulls", "Encoding", "DictSize", "Ratio", "Stored", "Raw"})
		for _, u := range stripe.Units {
			table.Append(unitRow(reader.Schema().Columns[u.Column].Name, u))
		}
		table.Render()
	}
	return nil
}

func unitRow(name string, u *format.UnitInformation) []string {
	var stored, raw int64
	for _, s := range u.Streams {
		stored += s.Length
		raw += s.UncompressedLength
	}

	dictSize, ratio := "-", "-"
	if u.Encoding == format.ColumnEncoding_DICTIONARY {
		dictSize = fmt.Sprint(u.DictionarySize)
		if present := u.NumRows - u.NullCount; present > 0 {
			ratio = fmt.Sprintf("%.3f", float64(u.DictionarySize)/float64(present))
		}
	}

	return []string{
		name,
		fmt.Sprint(u.FirstRow),
		fmt.Sprint(u.NumRows),
		fmt.Sprint(u.NullCount),
		u.Encoding.String(),
		dictSize,
		ratio,
		humanize.Bytes(uint64(stored)),
		humanize.Bytes(uint64(raw)),
	}
}
