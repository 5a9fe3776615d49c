package migrate

import (
	"github.com/spf13/cobra"

	"github.com/issuedesk/tracker/internal/cli/bootstrap"
	"github.com/issuedesk/tracker/internal/infrastructure/db/sqlstore"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long:  `Create or update the users, authtoken_token and tickets tables to match the current schema.`,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, log, err := bootstrap.Init(ctx)
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = sqlstore.Close(db) }()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		log.Error().Err(err).Msg("migration failed")
		return err
	}

	log.Info().Msg("migrations applied")
	return nil
}
