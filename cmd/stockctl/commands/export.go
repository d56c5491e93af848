package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"bookshop-pos/internal/catalog"
	"bookshop-pos/internal/export"

	"github.com/spf13/cobra"
)

var outPath string

// exportCmd writes CSV snapshots
var exportCmd = &cobra.Command{
	Use:       "export [books|transactions]",
	Short:     "Export books or transactions as CSV",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"books", "transactions"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openMigratedStore()
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.ListAll(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		switch args[0] {
		case "books":
			err = export.Books(w, snap.Books)
		default:
			err = export.Transactions(w, snap.Transactions)
		}
		return err
	},
}

// stockCmd prints the inventory table
var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Print current stock and inventory value",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openMigratedStore()
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.ListAll(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tQUANTITY\tVALUE")
		for _, b := range snap.Books {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", b.ID, b.Title, b.Price, b.Quantity, b.Price*b.Quantity)
		}
		fmt.Fprintf(tw, "\t\t\t\t%d\n", snap.InventoryValue())
		return tw.Flush()
	},
}

// seedCmd loads the catalog into an empty database
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the catalog titles into an empty books table",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openMigratedStore()
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.Seed(cmd.Context(), catalog.Entries())
		if err != nil {
			return err
		}
		return report(cmd.OutOrStdout(), n)
	},
}

func report(w io.Writer, n int) error {
	if n == 0 {
		_, err := fmt.Fprintln(w, "books table already populated, nothing seeded")
		return err
	}
	_, err := fmt.Fprintf(w, "seeded %d titles\n", n)
	return err
}

func init() {
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(seedCmd)
}
