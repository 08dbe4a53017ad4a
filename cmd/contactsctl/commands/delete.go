package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/mutation"
)

func (c *CLI) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete contacts, one tracked mutation per id",
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

			m := mutation.NewMultiMutation(s.cache, contacts.DeleteDefinition(s.api, s.guard))
			runErr := mutateAll(cmd.Context(), m, ids, s.cfg.Concurrency, func(id int) int { return id })

			if err := printListing(cmd.OutOrStdout(), s.inspector, s.cfg.Output); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}
}
