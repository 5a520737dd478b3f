package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weftworks/weft/pkg/market"
)

var (
	sellPrice    int64
	buyPayment   int64
	marketSeller string
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Resell workflow instances",
}

var marketLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List active listings",
	Run: func(cmd *cobra.Command, args []string) {
		path := "/v1/listings"
		if marketSeller != "" {
			path += "?seller=" + marketSeller
		}
		var listings []market.Listing
		call("GET", path, nil, &listings)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tTEMPLATE\tSELLER\tPRICE\tCREATED")
		for _, l := range listings {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n",
				l.ID, l.TemplateID, l.Seller, l.Price, l.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
	},
}

var marketSellCmd = &cobra.Command{
	Use:   "sell <template-id>",
	Short: "Escrow an instance from your vault into a listing",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid template id: %v\n", err)
			os.Exit(1)
		}

		var resp struct {
			ListingID uint64 `json:"listing_id"`
		}
		call("POST", "/v1/listings", map[string]any{
			"template_id": id,
			"price_micro": sellPrice,
		}, &resp)
		fmt.Printf("Listing %d created\n", resp.ListingID)
	},
}

var marketCancelCmd = &cobra.Command{
	Use:   "cancel <listing-id>",
	Short: "Cancel a listing and return the instance to your vault",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("DELETE", "/v1/listings/"+args[0], nil, nil)
		fmt.Println("Listing cancelled, instance returned to vault")
	},
}

var marketPriceCmd = &cobra.Command{
	Use:   "price <listing-id> <price-micro>",
	Short: "Update a listing's price",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		price, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid price: %v\n", err)
			os.Exit(1)
		}
		call("POST", "/v1/listings/"+args[0]+"/price", map[string]int64{"price_micro": price}, nil)
		fmt.Println("Price updated")
	},
}

var marketBuyCmd = &cobra.Command{
	Use:   "buy <listing-id>",
	Short: "Purchase a listing (exact payment required)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("POST", "/v1/listings/"+args[0]+"/purchase", map[string]int64{"payment_micro": buyPayment}, nil)
		fmt.Println("Purchased: instance deposited into your vault")
	},
}

func init() {
	rootCmd.AddCommand(marketCmd)
	marketCmd.AddCommand(marketLsCmd)
	marketCmd.AddCommand(marketSellCmd)
	marketCmd.AddCommand(marketCancelCmd)
	marketCmd.AddCommand(marketPriceCmd)
	marketCmd.AddCommand(marketBuyCmd)

	marketLsCmd.Flags().StringVar(&marketSeller, "seller", "", "Filter by seller account")
	marketSellCmd.Flags().Int64Var(&sellPrice, "price", 0, "Listing price in micro-units")
	marketBuyCmd.Flags().Int64Var(&buyPayment, "payment", 0, "Payment in micro-units (must equal the listing price exactly)")
}
