package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	fromBlock string
	toBlock   string
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Print the value stored in the contract.",
	Run:   valueRun,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the history of value updates.",
	Run:   eventsRun,
}

func init() {
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVarP(&fromBlock, "from", "f", "", "First block of the range.")
	eventsCmd.Flags().StringVarP(&toBlock, "to", "t", "", "Last block of the range, a number or latest.")
}

func valueRun(cmd *cobra.Command, args []string) {
	base, err := getBackendURL()
	if err != nil {
		log.Fatal(err)
	}

	v, err := fetchValue(context.Background(), base)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(v.Value)
}

func eventsRun(cmd *cobra.Command, args []string) {
	base, err := getBackendURL()
	if err != nil {
		log.Fatal(err)
	}

	evts, err := fetchEvents(context.Background(), base, fromBlock, toBlock)
	if err != nil {
		log.Fatal(err)
	}

	if len(evts) == 0 {
		fmt.Println("no updates in range")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tVALUE\tTX")
	for _, ev := range evts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ev.BlockNumber, ev.Value, ev.TxHash)
	}
	w.Flush()
}
