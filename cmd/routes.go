package cmd

import (
	"fmt"
	"text/tabwriter"

	"app-host/core/descriptor"
	"app-host/core/router"

	"github.com/spf13/cobra"
)

// routesCmd prints the handler table or resolves one path.
var routesCmd = &cobra.Command{
	Use:   "routes [path]",
	Short: "Print the route table or the handler matching a path",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, _, err := descriptor.Load(cfg.App.Descriptor)
		if err != nil {
			return err
		}
		r, err := router.New(d)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		if len(args) == 1 {
			m, ok := r.Match(args[0])
			if !ok {
				fmt.Fprintf(w, "%s\tno handler (404)\n", args[0])
				return nil
			}
			target := m.File
			if m.Kind == descriptor.KindScript {
				target = "app"
			}
			fmt.Fprintf(w, "%s\t#%d %s\t%s\t%s\n", args[0], m.Index, m.Handler.URL, m.Kind, target)
			return nil
		}

		fmt.Fprintln(w, "#\tURL\tKIND\tTARGET\tSECURE\tEXPIRATION")
		for _, route := range r.Routes() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				route.Index, route.URL, route.Kind, route.Target, dash(route.Secure), dash(route.Expiration))
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(routesCmd)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
