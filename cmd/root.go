package cmd

import "github.com/spf13/cobra"

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "todoboard",
		Short: "A todo board with three workflow columns",
		Long: `Todoboard serves todo lists split into To Do, In Progress and In Review
columns, with a drag and drop view kept in sync across browsers.`,
		SilenceUsage: true,
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yml", "config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(dropCmd)
}
