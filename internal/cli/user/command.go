package user

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/issuedesk/tracker/internal/cli/bootstrap"
	"github.com/issuedesk/tracker/internal/core/domain"
	"github.com/issuedesk/tracker/internal/core/ports"
	"github.com/issuedesk/tracker/internal/infrastructure/db/sqlstore"
)

var (
	username  string
	email     string
	password  string
	firstName string
	lastName  string
	role      string
	staff     bool
	limit     int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account administration",
		Long:  `Create, list and delete accounts directly against the database.`,
	}

	cmd.AddCommand(
		newCreateCommand(),
		newDeleteCommand(),
		newListCommand(),
	)

	return cmd
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Long:  `Create an account with any role. Use --role admin --staff to provision an administrator.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password, at least 8 characters (required)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&role, "role", "r", string(domain.RoleUser), "Role: user, developer, manager or admin")
	cmd.Flags().BoolVar(&staff, "staff", false, "Mark the account as staff")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account",
		Long:  `Delete an account. Tickets it created are deleted with it; tickets assigned to it become unassigned.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Long:  `List accounts, most recently joined first.`,
		RunE:  runList,
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of accounts to show")

	return cmd
}

// withApp runs fn against fully wired services and releases them after.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	cfg, log, err := bootstrap.Init(ctx)
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, db, log)
	if err != nil {
		_ = sqlstore.Close(db)
		return err
	}
	defer app.Close(ctx, log)

	return fn(app)
}

func runCreate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(app *bootstrap.App) error {
		account, err := app.Accounts.CreateAccount(cmd.Context(), ports.CreateAccountInput{
			Username:  username,
			Email:     email,
			Password:  password,
			FirstName: firstName,
			LastName:  lastName,
			Role:      domain.Role(role),
			IsStaff:   staff,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with id %s\n", account.Username, account.Role, account.ID)
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(app *bootstrap.App) error {
		account, err := app.AccountRepo.FindByUsername(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := app.Accounts.DeleteAccount(cmd.Context(), account.ID); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", account.Username)
		return nil
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	return withApp(cmd.Context(), func(app *bootstrap.App) error {
		accounts, total, err := app.AccountRepo.List(cmd.Context(), 0, limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tJOINED")
		for _, a := range accounts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
				a.ID, a.Username, a.Email, a.Role, a.IsActive, a.DateJoined.Format("2006-01-02"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d accounts\n", len(accounts), total)
		return nil
	})
}
