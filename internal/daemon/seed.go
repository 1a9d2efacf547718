package daemon

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/journal"
)

// Seed loads the default navigation menus into the site and into every context that
// has no menu yet.
func (s *Services) Seed(ctx context.Context) error {
	contexts, _, err := s.Journals.GetMany(ctx, journal.Filter{}, dao.Paging{})
	if err != nil {
		return err
	}

	ids := []uint64{0}
	for _, j := range contexts {
		ids = append(ids, j.ID())
	}

	for _, id := range ids {
		menus, err := s.Navigation.Menus(ctx, id)
		if err != nil {
			return err
		}

		if len(menus) > 0 {
			continue
		}

		if err = s.Navigation.LoadFile(ctx, id, s.Cfg.Navigation.RegistryFile); err != nil {
			return err
		}

		log.Info().Uint64("context", id).Msg("default navigation menus loaded")
	}

	return nil
}
