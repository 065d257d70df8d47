// saasbench generates synthetic SaaS subscription populations, advances
// them through churn/upgrade/downgrade lifecycles, and aggregates the
// result into pricing analytics.
package main

import (
	"os"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "saasbench",
		Short:         "Synthetic SaaS pricing analytics benchmark",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newMetricsCmd())
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
