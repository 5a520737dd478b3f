package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weftworks/weft/pkg/domain"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage workflow templates",
	Long:  `Register, inspect, and price workflow templates in the shared registry.`,
}

// templateManifest is the YAML file 'weft template register' consumes.
type templateManifest struct {
	Name           string         `yaml:"name"`
	CodeFile       string         `yaml:"code_file"`
	PriceMicro     int64          `yaml:"price_micro"`
	ConfigDefaults map[string]any `yaml:"config_defaults"`
	ParentID       *uint64        `yaml:"parent_id,omitempty"`
}

var templateRegisterCmd = &cobra.Command{
	Use:   "register <manifest.yaml>",
	Short: "Deploy code and register a template from a manifest",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()

		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading manifest: %v\n", err)
			os.Exit(1)
		}
		var m templateManifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing manifest: %v\n", err)
			os.Exit(1)
		}

		code, err := os.ReadFile(m.CodeFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading code file: %v\n", err)
			os.Exit(1)
		}

		var deployed struct {
			Hash string `json:"hash"`
		}
		call("POST", "/v1/code", map[string]string{"name": m.Name, "code": string(code)}, &deployed)

		var parentID *domain.TemplateID
		if m.ParentID != nil {
			pid := domain.TemplateID(*m.ParentID)
			parentID = &pid
		}

		var tpl domain.Template
		call("POST", "/v1/templates", map[string]any{
			"name":            m.Name,
			"price_micro":     m.PriceMicro,
			"config_defaults": m.ConfigDefaults,
			"parent_id":       parentID,
		}, &tpl)

		fmt.Printf("Registered template %d (%s), code hash %s\n", tpl.ID, tpl.Name, tpl.CodeHash)
	},
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered templates",
	Run: func(cmd *cobra.Command, args []string) {
		var templates []domain.Template
		call("GET", "/v1/templates", nil, &templates)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATOR\tPRICE\tLISTED\tCLONES\tFORKS")
		for _, t := range templates {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%d\t%d\n",
				t.ID, t.Name, t.Creator, t.Price, t.Listed, t.CloneCount, t.ForkCount)
		}
		w.Flush()
	},
}

var templateInfoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show template details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var tpl domain.Template
		call("GET", "/v1/templates/"+args[0], nil, &tpl)

		fmt.Printf("ID:         %d\n", tpl.ID)
		fmt.Printf("Name:       %s\n", tpl.Name)
		fmt.Printf("Creator:    %s\n", tpl.Creator)
		fmt.Printf("Code hash:  %s\n", tpl.CodeHash)
		fmt.Printf("Price:      %s\n", tpl.Price)
		fmt.Printf("Listed:     %t\n", tpl.Listed)
		fmt.Printf("Clones:     %d\n", tpl.CloneCount)
		fmt.Printf("Forks:      %d\n", tpl.ForkCount)
		if tpl.ParentID != nil {
			fmt.Printf("Parent:     %d\n", *tpl.ParentID)
		}
		if len(tpl.ConfigDefaults) > 0 {
			fmt.Println("Defaults:")
			for k, v := range tpl.ConfigDefaults {
				fmt.Printf("  %s: %v\n", k, v)
			}
		}
	},
}

var templateSetPriceCmd = &cobra.Command{
	Use:   "set-price <id> <price-micro>",
	Short: "Update the per-clone price (future clones only)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		price, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid price: %v\n", err)
			os.Exit(1)
		}
		call("POST", "/v1/templates/"+args[0]+"/price", map[string]int64{"price_micro": price}, nil)
		fmt.Println("Price updated")
	},
}

var templateDelistCmd = &cobra.Command{
	Use:   "delist <id>",
	Short: "Hide a template from discovery",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("POST", "/v1/templates/"+args[0]+"/listed", map[string]bool{"listed": false}, nil)
		fmt.Println("Template delisted")
	},
}

var templateRelistCmd = &cobra.Command{
	Use:   "relist <id>",
	Short: "Re-advertise a template (rejected once clones exist)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requireAccount()
		call("POST", "/v1/templates/"+args[0]+"/listed", map[string]bool{"listed": true}, nil)
		fmt.Println("Template relisted")
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateRegisterCmd)
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateInfoCmd)
	templateCmd.AddCommand(templateSetPriceCmd)
	templateCmd.AddCommand(templateDelistCmd)
	templateCmd.AddCommand(templateRelistCmd)
}
