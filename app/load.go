package app

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkp/pkplib/internal/logger"
	"github.com/pkp/pkplib/internal/task"
)

// errUnknownRegistry is returned for an xml file that is neither a navigation menu nor a
// scheduled task registry.
var errUnknownRegistry = errors.New("unknown registry file")

const sitePath = "index"

func init() { //nolint: gochecknoinits
	loadCmd.Flags().StringVar(&loadContext, "context", sitePath, "url path of the context receiving navigation menus")

	rootCmd.AddCommand(loadCmd)
}

var (
	loadContext string

	loadCmd = &cobra.Command{
		Use:   "load <xml>",
		Short: "Load navigation menus into a context or record a scheduled task registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := rootElement(args[0])
			if err != nil {
				return err
			}

			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			ctx := cmd.Context()
			log := logger.Component("load")

			switch root {
			case "navigationMenus":
				var contextID uint64

				if loadContext != sitePath {
					j, err := services.Journals.GetByPath(ctx, loadContext)
					if err != nil {
						return fmt.Errorf("context %q: %w", loadContext, err)
					}

					contextID = j.ID()
				}

				if err = services.Navigation.LoadFile(ctx, contextID, args[0]); err != nil {
					return err
				}

				log.Info().Str("context", loadContext).Msg("navigation menus loaded")
			case "scheduled_tasks":
				entries, err := task.LoadRegistry(args[0])
				if err != nil {
					return err
				}

				if err = task.NewScheduler(services.DB, entries, task.Options{}).Sync(ctx); err != nil {
					return err
				}

				log.Info().Int("tasks", len(entries)).Msg("scheduled task registry recorded")
			default:
				return fmt.Errorf("%s: <%s>: %w", args[0], root, errUnknownRegistry)
			}

			return nil
		},
	}
)

// rootElement returns the name of the document element of an xml file.
func rootElement(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	dec := xml.NewDecoder(f)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%s: %w", path, errUnknownRegistry)
		}

		if err != nil {
			return "", fmt.Errorf("%s: %w", path, err)
		}

		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}
