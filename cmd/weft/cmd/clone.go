package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	cloneTicketID  string
	cloneOverrides string
	ticketPayment  int64
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Buy clone tickets",
}

var ticketBuyCmd = &cobra.Command{
	Use:   "buy <template-id>",
	Short: "Purchase a single-use clone ticket (exact payment required)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid template id: %v\n", err)
			os.Exit(1)
		}

		var resp struct {
			TicketID string `json:"ticket_id"`
		}
		call("POST", "/v1/tickets", map[string]any{
			"template_id":   id,
			"payment_micro": ticketPayment,
		}, &resp)
		fmt.Printf("Ticket: %s\n", resp.TicketID)
	},
}

var cloneCmd = &cobra.Command{
	Use:   "clone <template-id>",
	Short: "Mint a clone into your vault",
	Long: `Consumes a clone ticket (bought with 'weft ticket buy') and deposits a new
instance into your vault. Template creators clone their own templates
without a ticket.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid template id: %v\n", err)
			os.Exit(1)
		}

		var overrides map[string]any
		if cloneOverrides != "" {
			if err := json.Unmarshal([]byte(cloneOverrides), &overrides); err != nil {
				fmt.Fprintf(os.Stderr, "Invalid overrides JSON: %v\n", err)
				os.Exit(1)
			}
		}

		call("POST", "/v1/clones", map[string]any{
			"template_id": id,
			"ticket_id":   cloneTicketID,
			"overrides":   overrides,
		}, nil)
		fmt.Println("Clone deposited into vault")
	},
}

func init() {
	rootCmd.AddCommand(ticketCmd)
	ticketCmd.AddCommand(ticketBuyCmd)
	ticketBuyCmd.Flags().Int64Var(&ticketPayment, "payment", 0, "Payment in micro-units (must equal the template price exactly)")

	rootCmd.AddCommand(cloneCmd)
	cloneCmd.Flags().StringVar(&cloneTicketID, "ticket", "", "Clone ticket id")
	cloneCmd.Flags().StringVar(&cloneOverrides, "overrides", "", "Config overrides as JSON object")
}
