package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tansive/pronote/internal/config"
	"github.com/tansive/pronote/internal/store"
)

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage classes and users in the records store",
		Long: `Manage the classes and users kept in the records store. Without a store.dsn the
store lives in memory and only lasts for the command.

Examples:
  pronote store class add 3B
  pronote store user add demonstration --class 1
  pronote store user delete 4`,
	}
	class := &cobra.Command{Use: "class", Short: "Manage classes"}
	class.AddCommand(
		storeCommand("add NAME", "Create a class", func(ctx context.Context, s store.Store, arg string) (any, error) {
			return s.CreateClass(ctx, arg)
		}),
		storeCommand("get ID", "Show a class", withID(func(ctx context.Context, s store.Store, id int64) (any, error) {
			return s.GetClass(ctx, id)
		})),
		storeCommand("delete ID", "Mark a class as deleted", withID(func(ctx context.Context, s store.Store, id int64) (any, error) {
			return map[string]any{"deleted": id}, s.DeleteClass(ctx, id)
		})),
	)

	var classID int64
	addUser := storeCommand("add USERNAME", "Create a user in a class", func(ctx context.Context, s store.Store, arg string) (any, error) {
		return s.CreateUser(ctx, arg, classID)
	})
	addUser.Flags().Int64Var(&classID, "class", 0, "ID of the user's class")
	_ = addUser.MarkFlagRequired("class")

	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(
		addUser,
		storeCommand("get ID", "Show a user", withID(func(ctx context.Context, s store.Store, id int64) (any, error) {
			return s.GetUser(ctx, id)
		})),
		storeCommand("delete ID", "Mark a user as deleted", withID(func(ctx context.Context, s store.Store, id int64) (any, error) {
			return map[string]any{"deleted": id}, s.DeleteUser(ctx, id)
		})),
	)

	cmd.AddCommand(class, user)
	return cmd
}

type storeFunc func(ctx context.Context, s store.Store, arg string) (any, error)

// storeCommand opens the configured store, runs fn on the single argument and prints the result.
func storeCommand(use, short string, fn storeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := store.Open(ctx, config.Config().Store)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := fn(ctx, s, args[0])
			if err != nil {
				return err
			}
			format, _ := outputFormat("")
			printValue(format, out)
			return nil
		},
	}
}

func withID(fn func(ctx context.Context, s store.Store, id int64) (any, error)) storeFunc {
	return func(ctx context.Context, s store.Store, arg string) (any, error) {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id < 1 {
			return nil, store.ErrInvalidInput.Msg(fmt.Sprintf("invalid id %q", arg))
		}
		return fn(ctx, s, id)
	}
}
