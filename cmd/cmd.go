package cmd

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "motoroute",
	Short: "plan, save and share motorcycle trips",
	Long:  `motoroute computes driving routes through ordered waypoints, stores named trips and shares them through public links`,
}

func init() {
	RootCmd.AddCommand(planCmd())
	RootCmd.AddCommand(serverCommand())
	RootCmd.AddCommand(migrateCommand())
}
