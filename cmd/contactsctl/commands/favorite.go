package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/mutation"
	"github.com/jonwraymond/mutcache/observe"
)

func (c *CLI) newFavoriteCmd() *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "favorite <id>...",
		Short: "Mark contacts as favorite, one tracked mutation per id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			s, err := c.open(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close()) }()

			ctx := cmd.Context()
			def := contacts.FavoriteDefinition(s.api, s.guard, func(before, after contacts.Contact) {
				s.logger.Info(ctx, "favorite changed",
					observe.Field{Key: "contact", Value: after.ID},
					observe.Field{Key: "name", Value: after.FullName()},
					observe.Field{Key: "before", Value: before.IsFavorite},
					observe.Field{Key: "after", Value: after.IsFavorite},
				)
			})
			m := mutation.NewMultiMutation(s.cache, def)
			runErr := mutateAll(ctx, m, ids, s.cfg.Concurrency, func(id int) contacts.FavoriteVars {
				return contacts.FavoriteVars{ID: id, Favorite: !off}
			})

			if err := printListing(cmd.OutOrStdout(), s.inspector, s.cfg.Output); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Clear the favorite flag instead of setting it")
	return cmd
}
