package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weftworks/weft/pkg/domain"
)

var scheduleFrequency string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage owned workflow instances",
}

var vaultLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List instances in your vault",
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		var instances []domain.Instance
		call("GET", "/v1/vault", nil, &instances)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TEMPLATE\tCLONED\tSCHEDULED\tFREQUENCY\tLAST RUN")
		for _, inst := range instances {
			lastRun := "-"
			if !inst.Scheduling.LastRun.IsZero() {
				lastRun = inst.Scheduling.LastRun.Format("2006-01-02 15:04:05")
			}
			freq := "-"
			if inst.Scheduling.Enabled {
				freq = inst.Scheduling.Frequency.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n",
				inst.TemplateID, inst.ClonedAt.Format("2006-01-02 15:04:05"),
				inst.Scheduling.Enabled, freq, lastRun)
		}
		w.Flush()
	},
}

var vaultRunCmd = &cobra.Command{
	Use:   "run <template-id>",
	Short: "Execute an instance's strategy now",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		var resp struct {
			Ran bool `json:"ran"`
		}
		call("POST", "/v1/vault/"+args[0]+"/run", map[string]any{}, &resp)
		if resp.Ran {
			fmt.Println("Run complete")
		} else {
			fmt.Println("Skipped: frequency window has not elapsed")
		}
	},
}

var vaultBurnCmd = &cobra.Command{
	Use:   "burn <template-id>",
	Short: "Destroy an instance permanently (irreversible)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("DELETE", "/v1/vault/"+args[0], nil, nil)
		fmt.Println("Instance burned")
	},
}

var vaultScheduleCmd = &cobra.Command{
	Use:   "schedule <template-id>",
	Short: "Enable periodic runs via the task scheduler",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("POST", "/v1/vault/"+args[0]+"/schedule", map[string]string{"frequency": scheduleFrequency}, nil)
		fmt.Printf("Scheduled every %s\n", scheduleFrequency)
	},
}

var vaultUnscheduleCmd = &cobra.Command{
	Use:   "unschedule <template-id>",
	Short: "Disable periodic runs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("DELETE", "/v1/vault/"+args[0]+"/schedule", nil, nil)
		fmt.Println("Scheduling disabled")
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your account balance",
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		var resp struct {
			Balance string `json:"balance"`
		}
		call("GET", "/v1/balance", nil, &resp)
		fmt.Println(resp.Balance)
	},
}

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultLsCmd)
	vaultCmd.AddCommand(vaultRunCmd)
	vaultCmd.AddCommand(vaultBurnCmd)
	vaultCmd.AddCommand(vaultScheduleCmd)
	vaultCmd.AddCommand(vaultUnscheduleCmd)
	vaultScheduleCmd.Flags().StringVar(&scheduleFrequency, "every", "1h", "Run frequency (Go duration)")

	rootCmd.AddCommand(balanceCmd)
}
