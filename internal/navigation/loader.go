package navigation

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/models"
)

// xmlMenus is the navigationMenus.xml document.
type xmlMenus struct {
	XMLName xml.Name  `xml:"navigationMenus"`
	Menus   []xmlMenu `xml:"navigationMenu"`
	Items   []xmlItem `xml:"navigationMenuItem"`
}

type xmlMenu struct {
	Title string    `xml:"title,attr"`
	Area  string    `xml:"area,attr"`
	Items []xmlItem `xml:"navigationMenuItem"`
}

type xmlItem struct {
	Title string    `xml:"title,attr"`
	Type  string    `xml:"type,attr"`
	Path  string    `xml:"path,attr"`
	Items []xmlItem `xml:"navigationMenuItem"`
}

// LoadFile installs the default menus described in an XML file for a context.
func (s *Service) LoadFile(ctx context.Context, contextID uint64, path string) error {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	return s.Load(ctx, contextID, f)
}

// Load installs default menus and items for a context. Menus whose title already exists
// in the context are left alone; items are reused when the context already has an item
// of the same type, path and title key.
func (s *Service) Load(ctx context.Context, contextID uint64, r io.Reader) error {
	var doc xmlMenus
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("parse navigation menus: %w", err)
	}

	for _, it := range doc.Items {
		if _, err := s.ensureItem(ctx, contextID, it); err != nil {
			return err
		}
	}

	for _, m := range doc.Menus {
		if err := s.loadMenu(ctx, contextID, m); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) loadMenu(ctx context.Context, contextID uint64, m xmlMenu) error {
	menu := &models.NavigationMenu{ContextID: contextID, Title: m.Title, AreaName: m.Area}

	err := s.CreateMenu(ctx, menu)

	switch {
	case errors.Is(err, ErrTitleTaken):
		log.Debug().Str("menu", m.Title).Uint64("context", contextID).Msg("navigation menu exists, skipped")

		return nil
	case errors.Is(err, ErrAreaTaken):
		log.Warn().Str("menu", m.Title).Str("area", m.Area).Msg("area in use, navigation menu created without area")

		menu.AreaName = ""
		err = s.CreateMenu(ctx, menu)
	}

	if err != nil {
		return fmt.Errorf("create navigation menu %q: %w", m.Title, err)
	}

	nodes, err := s.loadNodes(ctx, contextID, m.Items)
	if err != nil {
		return err
	}

	return s.Assign(ctx, menu.ID, nodes)
}

func (s *Service) loadNodes(ctx context.Context, contextID uint64, items []xmlItem) ([]Node, error) {
	nodes := make([]Node, 0, len(items))

	for _, it := range items {
		id, err := s.ensureItem(ctx, contextID, it)
		if err != nil {
			return nil, err
		}

		children, err := s.loadNodes(ctx, contextID, it.Items)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, Node{ItemID: id, Children: children})
	}

	return nodes, nil
}

func (s *Service) ensureItem(ctx context.Context, contextID uint64, it xmlItem) (uint64, error) {
	if _, ok := Type(it.Type); !ok {
		return 0, fmt.Errorf("navigation menu item %q: unknown type %q", it.Title, it.Type)
	}

	existing, err := s.ItemsOf(ctx, contextID, it.Type)
	if err != nil {
		return 0, err
	}

	for _, obj := range existing {
		if obj.GetString("path") == it.Path && obj.GetString("titleLocaleKey") == it.Title {
			return obj.ID(), nil
		}
	}

	obj := dataobject.New()
	obj.Set("contextId", int64(contextID)) //nolint:gosec
	obj.Set("type", it.Type)
	obj.Set("titleLocaleKey", it.Title)

	if it.Path != "" {
		obj.Set("path", it.Path)
	}

	return s.Items.DAO.Insert(ctx, obj)
}
