package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timada-org/todoboard/internal/core"
	"github.com/timada-org/todoboard/internal/kv"
	"github.com/timada-org/todoboard/internal/todo"
)

var listCmd = &cobra.Command{
	Use:   "list <list-id>",
	Short: "Print the items of a list grouped by column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		board, err := todo.NewManager(store, args[0]).ListByColumn(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range todo.Columns {
			fmt.Fprintf(out, "%s (%d)\n", c.Label(), len(board[c]))
			for _, item := range board[c] {
				mark := " "
				if item.Completed {
					mark = "x"
				}
				fmt.Fprintf(out, "  [%s] %s  %s\n", mark, item.ID, item.Text)
			}
		}

		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <list-id> <text>",
	Short: "Add an item to the To Do column of a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := todo.NewManager(store, args[0]).Create(cmd.Context(), args[1])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), item.ID)
		return nil
	},
}

func openStore() (kv.Store, error) {
	config, err := core.NewConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	return kv.Open(config.Store.Driver, config.Store.DSN)
}

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Print the id of every stored list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := todo.ListIDs(cmd.Context(), store)
		if err != nil {
			return err
		}

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var dropCmd = &cobra.Command{
	Use:   "drop <list-id>",
	Short: "Delete a whole list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return todo.NewManager(store, args[0]).Drop(cmd.Context())
	},
}
