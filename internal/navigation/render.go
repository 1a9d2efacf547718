package navigation

import "context"

// localeKeys holds the English text of the title keys used by the default menus.
var localeKeys = map[string]string{ //nolint:gochecknoglobals
	"navigation.current":              "Current",
	"navigation.archives":             "Archives",
	"manager.announcements":           "Announcements",
	"navigation.about":                "About",
	"about.aboutContext":              "About the Journal",
	"about.submissions":               "Submissions",
	"about.editorialTeam":             "Editorial Team",
	"about.contact":                   "Contact",
	"manager.setup.privacyStatement":  "Privacy Statement",
	"navigation.search":               "Search",
	"navigation.register":             "Register",
	"navigation.login":                "Login",
	"navigation.dashboard":            "Dashboard",
	"navigation.myAccount":            "My Account",
	"common.viewProfile":              "View Profile",
	"user.logOut":                     "Logout",
	"navigation.admin":                "Administration",
	"navigation.userManagement":       "User Management",
	"navigation.navigationMenus.user": "User Navigation Menu",
}

// Link is a visible menu entry ready for rendering.
type Link struct {
	Title    string
	URL      string
	Type     string
	Children []Link
}

// Links resolves titles and urls of a tree for v and drops the entries v may not see,
// together with their children.
func Links(tree []*TreeItem, v Viewer) []Link {
	out := []Link{}

	for _, n := range tree {
		if !Visible(n.Item, v) {
			continue
		}

		out = append(out, Link{
			Title:    Title(n, v),
			URL:      URL(n.Item, v),
			Type:     n.Item.GetString("type"),
			Children: Links(n.Children, v),
		})
	}

	return out
}

// Title returns the title of an assigned item in the viewer locale. An assignment
// override in the viewer or primary locale wins over the item title; the title key and
// the type default are the fallbacks.
func Title(n *TreeItem, v Viewer) string {
	primary := primaryLocale(v)

	for _, locale := range []string{v.Locale, primary} {
		if s, ok := n.Title[locale].(string); ok && s != "" {
			return s
		}
	}

	if s := n.Item.GetLocalizedString("title", v.Locale, primary); s != "" {
		return s
	}

	if s, ok := localeKeys[n.Item.GetString("titleLocaleKey")]; ok {
		return s
	}

	t, _ := Type(n.Item.GetString("type"))

	return t.Title
}

// MenuLinks returns the visible links of the menu placed in area.
func (s *Service) MenuLinks(ctx context.Context, contextID uint64, area string, v Viewer) ([]Link, error) {
	menu, err := s.MenuByArea(ctx, contextID, area)
	if err != nil {
		return nil, err
	}

	tree, err := s.Tree(ctx, menu.ID)
	if err != nil {
		return nil, err
	}

	return Links(tree, v), nil
}
