package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pkp/pkplib/internal/daemon"
	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/models"
)

func init() { //nolint: gochecknoinits
	doisCmd.AddCommand(doisAssignCmd)
	rootCmd.AddCommand(doisCmd)
}

var (
	doisCmd = &cobra.Command{
		Use:   "dois",
		Short: "Manage the DOIs of publications",
	}

	doisAssignCmd = &cobra.Command{
		Use:   "assign <publicationId>",
		Short: "Create a DOI with the configured prefix and assign it to a publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("publication id %q: %w", args[0], err)
			}

			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			d, err := assignDoi(cmd.Context(), services, id)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), d.Doi)

			return err
		},
	}
)

// assignDoi creates a DOI in the context of publication id and links it.
func assignDoi(ctx context.Context, services *daemon.Services, id uint64) (*models.Doi, error) {
	pub, err := services.Publications.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	contextID, _ := dataobject.ToUint64(pub.Get("contextId"))

	d, err := services.Dois.Assign(ctx, contextID, services.Cfg.Doi.Prefix, services.Cfg.Doi.SuffixLength)
	if err != nil {
		return nil, err
	}

	if err = services.Publications.SetDoi(ctx, id, d.ID); err != nil {
		return nil, err
	}

	return d, nil
}
