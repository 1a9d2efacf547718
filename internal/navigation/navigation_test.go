package navigation_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/dbtest"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/entity"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/schema"
)

func setup(t *testing.T) *navigation.Service {
	t.Helper()

	schemas, err := schema.NewService()
	require.NoError(t, err)

	s, err := navigation.New(dbtest.Open(t), schemas, []string{"en", "fr_CA"}, "en")
	require.NoError(t, err)

	return s
}

func addItem(t *testing.T, s *navigation.Service, props map[string]any) uint64 {
	t.Helper()

	obj, verrs, err := s.AddItem(context.Background(), props)
	require.NoError(t, err)
	require.Nil(t, verrs)

	return obj.ID()
}

func TestService_Menus(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	primary := &models.NavigationMenu{ContextID: 1, Title: "Primary", AreaName: "primary"}
	require.NoError(t, s.CreateMenu(ctx, primary))
	require.NoError(t, s.CreateMenu(ctx, &models.NavigationMenu{ContextID: 1, Title: "Footer"}))
	require.NoError(t, s.CreateMenu(ctx, &models.NavigationMenu{ContextID: 2, Title: "Primary", AreaName: "primary"}))

	testCases := []struct {
		name    string
		menu    models.NavigationMenu
		wantErr error
	}{
		{name: "empty title", menu: models.NavigationMenu{ContextID: 1}, wantErr: navigation.ErrTitleEmpty},
		{name: "title taken", menu: models.NavigationMenu{ContextID: 1, Title: "Footer"}, wantErr: navigation.ErrTitleTaken},
		{
			name:    "area taken",
			menu:    models.NavigationMenu{ContextID: 1, Title: "Other", AreaName: "primary"},
			wantErr: navigation.ErrAreaTaken,
		},
		{name: "valid", menu: models.NavigationMenu{ContextID: 1, Title: "Sidebar", AreaName: "sidebar"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := tc.menu
			err := s.CreateMenu(ctx, &m)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.NotZero(t, m.ID)
		})
	}

	menus, err := s.Menus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, menus, 3)
	assert.Equal(t, "Footer", menus[0].Title)

	got, err := s.MenuByArea(ctx, 1, "primary")
	require.NoError(t, err)
	assert.Equal(t, primary.ID, got.ID)

	primary.Title = "Main"
	require.NoError(t, s.UpdateMenu(ctx, primary))

	got, err = s.GetMenu(ctx, primary.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main", got.Title)

	require.NoError(t, s.DeleteMenu(ctx, primary.ID))

	_, err = s.GetMenu(ctx, primary.ID)
	require.ErrorIs(t, err, navigation.ErrMenuNotFound)

	_, err = s.MenuByArea(ctx, 1, "primary")
	require.ErrorIs(t, err, navigation.ErrMenuNotFound)

	err = s.UpdateMenu(ctx, &models.NavigationMenu{ID: 999, ContextID: 1, Title: "x"})
	require.ErrorIs(t, err, navigation.ErrMenuNotFound)
}

func TestService_AddItem(t *testing.T) {
	testCases := []struct {
		name       string
		props      map[string]any
		wantFields []string
	}{
		{
			name:  "builtin type",
			props: map[string]any{"contextId": 1, "type": navigation.TypeAbout},
		},
		{
			name:       "unknown type",
			props:      map[string]any{"contextId": 1, "type": "NMI_TYPE_FORUM"},
			wantFields: []string{"type"},
		},
		{
			name:       "remote url without url",
			props:      map[string]any{"contextId": 1, "type": navigation.TypeRemoteURL, "title": map[string]any{"en": "PKP"}},
			wantFields: []string{"remoteUrl.en"},
		},
		{
			name: "remote url",
			props: map[string]any{
				"contextId": 1,
				"type":      navigation.TypeRemoteURL,
				"title":     map[string]any{"en": "PKP"},
				"remoteUrl": map[string]any{"en": "https://pkp.sfu.ca"},
			},
		},
		{
			name:       "custom page without title and path",
			props:      map[string]any{"contextId": 1, "type": navigation.TypeCustom},
			wantFields: []string{"path", "title.en"},
		},
		{
			name: "custom page path taken",
			props: map[string]any{
				"contextId": 1,
				"type":      navigation.TypeCustom,
				"path":      "policies",
				"title":     map[string]any{"en": "Policies again"},
			},
			wantFields: []string{"path"},
		},
		{
			name: "custom page path free in other context",
			props: map[string]any{
				"contextId": 2,
				"type":      navigation.TypeCustom,
				"path":      "policies",
				"title":     map[string]any{"en": "Policies"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setup(t)
			ctx := context.Background()

			addItem(t, s, map[string]any{
				"contextId": 1,
				"type":      navigation.TypeCustom,
				"path":      "policies",
				"title":     map[string]any{"en": "Policies"},
				"content":   map[string]any{"en": "<p>Open access</p>"},
			})

			obj, verrs, err := s.AddItem(ctx, tc.props)
			if tc.wantFields != nil {
				require.ErrorIs(t, err, entity.ErrInvalid)
				assert.Equal(t, tc.wantFields, verrs.Fields())

				return
			}

			require.NoError(t, err)
			require.Nil(t, verrs)

			got, err := s.GetItem(ctx, obj.ID())
			require.NoError(t, err)
			assert.Equal(t, tc.props["type"], got.GetString("type"))
		})
	}
}

func TestService_EditAndCustomPage(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	id := addItem(t, s, map[string]any{
		"contextId": 1,
		"type":      navigation.TypeCustom,
		"path":      "policies",
		"title":     map[string]any{"en": "Policies", "fr_CA": "Politiques"},
	})
	addItem(t, s, map[string]any{
		"contextId": 1,
		"type":      navigation.TypeCustom,
		"path":      "ethics",
		"title":     map[string]any{"en": "Ethics"},
	})

	got, verrs, err := s.EditItem(ctx, id, map[string]any{"title": map[string]any{"fr_CA": ""}})
	require.NoError(t, err)
	require.Nil(t, verrs)
	assert.Equal(t, map[string]any{"en": "Policies"}, got.Get("title"))

	_, verrs, err = s.EditItem(ctx, id, map[string]any{"path": "ethics"})
	require.ErrorIs(t, err, entity.ErrInvalid)
	assert.Equal(t, []string{"path"}, verrs.Fields())

	page, err := s.CustomPage(ctx, 1, "policies")
	require.NoError(t, err)
	assert.Equal(t, id, page.ID())

	_, err = s.CustomPage(ctx, 2, "policies")
	require.ErrorIs(t, err, dao.ErrNotFound)

	items, err := s.ItemsOf(ctx, 1, navigation.TypeCustom)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestService_AssignAndTree(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	menu := &models.NavigationMenu{ContextID: 1, Title: "Primary", AreaName: "primary"}
	require.NoError(t, s.CreateMenu(ctx, menu))

	about := addItem(t, s, map[string]any{"contextId": 1, "type": navigation.TypeAbout})
	contact := addItem(t, s, map[string]any{"contextId": 1, "type": navigation.TypeContact})
	search := addItem(t, s, map[string]any{"contextId": 1, "type": navigation.TypeSearch})
	foreign := addItem(t, s, map[string]any{"contextId": 2, "type": navigation.TypeSearch})

	testCases := []struct {
		name    string
		tree    []navigation.Node
		wantErr error
	}{
		{
			name:    "duplicate item",
			tree:    []navigation.Node{{ItemID: about, Children: []navigation.Node{{ItemID: about}}}},
			wantErr: navigation.ErrDuplicateItem,
		},
		{
			name:    "item of another context",
			tree:    []navigation.Node{{ItemID: foreign}},
			wantErr: navigation.ErrItemNotInContext,
		},
		{
			name:    "missing item",
			tree:    []navigation.Node{{ItemID: 999}},
			wantErr: dao.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, s.Assign(ctx, menu.ID, tc.tree), tc.wantErr)
		})
	}

	require.ErrorIs(t, s.Assign(ctx, 999, nil), navigation.ErrMenuNotFound)

	require.NoError(t, s.Assign(ctx, menu.ID, []navigation.Node{
		{ItemID: search},
		{ItemID: about, Title: map[string]string{"en": "About us"}, Children: []navigation.Node{{ItemID: contact}}},
	}))

	tree, err := s.Tree(ctx, menu.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)

	assert.Equal(t, search, tree[0].Item.ID())
	assert.Equal(t, about, tree[1].Item.ID())
	assert.Equal(t, map[string]any{"en": "About us"}, tree[1].Title)
	require.Len(t, tree[1].Children, 1)
	assert.Equal(t, contact, tree[1].Children[0].Item.ID())

	// reassigning replaces the tree
	require.NoError(t, s.Assign(ctx, menu.ID, []navigation.Node{{ItemID: contact}}))

	tree, err = s.Tree(ctx, menu.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	assert.Nil(t, tree[0].Title)

	require.NoError(t, s.Assign(ctx, menu.ID, []navigation.Node{
		{ItemID: about, Children: []navigation.Node{{ItemID: contact}, {ItemID: search}}},
	}))
	require.NoError(t, s.DeleteItem(ctx, about))

	tree, err = s.Tree(ctx, menu.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, contact, tree[0].Item.ID())
	assert.Empty(t, tree[0].Children)

	_, err = s.GetItem(ctx, about)
	require.ErrorIs(t, err, dao.ErrNotFound)

	require.NoError(t, s.DeleteMenu(ctx, menu.ID))

	var n int64
	require.NoError(t, s.DB.Model(&models.NavigationMenuItemAssignment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestLinks(t *testing.T) {
	journal := dataobject.FromMap(map[string]any{
		"primaryLocale":       "en",
		"contactEmail":        "editor@example.com",
		"enableAnnouncements": false,
	})

	item := func(props map[string]any) *dataobject.DataObject {
		return dataobject.FromMap(props)
	}

	tree := []*navigation.TreeItem{
		{Item: item(map[string]any{"type": navigation.TypeAbout, "titleLocaleKey": "navigation.about"}),
			Title: map[string]any{"fr_CA": "À propos"},
			Children: []*navigation.TreeItem{
				{Item: item(map[string]any{"type": navigation.TypeContact})},
				{Item: item(map[string]any{"type": navigation.TypeAnnouncements})},
			}},
		{Item: item(map[string]any{
			"type":  navigation.TypeCustom,
			"path":  "policies",
			"title": map[string]any{"en": "Policies", "fr_CA": "Politiques"},
		})},
		{Item: item(map[string]any{
			"type":      navigation.TypeRemoteURL,
			"title":     map[string]any{"en": "PKP"},
			"remoteUrl": map[string]any{"en": "https://pkp.sfu.ca"},
		})},
		{Item: item(map[string]any{"type": navigation.TypeUserLogin})},
		{Item: item(map[string]any{"type": navigation.TypeUserDashboard}), Children: []*navigation.TreeItem{
			{Item: item(map[string]any{"type": navigation.TypeAdministration})},
		}},
	}

	testCases := []struct {
		name   string
		viewer navigation.Viewer
		want   []string
	}{
		{
			name:   "anonymous",
			viewer: navigation.Viewer{Context: journal, ContextPath: "pk", Locale: "en"},
			want: []string{
				"About /pk/about", "-Contact /pk/about/contact", "Policies /pk/policies",
				"PKP https://pkp.sfu.ca", "Login /pk/login",
			},
		},
		{
			name:   "french",
			viewer: navigation.Viewer{Context: journal, ContextPath: "pk", Locale: "fr_CA"},
			want: []string{
				"À propos /pk/about", "-Contact /pk/about/contact", "Politiques /pk/policies",
				"PKP https://pkp.sfu.ca", "Login /pk/login",
			},
		},
		{
			name:   "administrator",
			viewer: navigation.Viewer{LoggedIn: true, Admin: true, Context: journal, ContextPath: "pk", Locale: "en"},
			want: []string{
				"About /pk/about", "-Contact /pk/about/contact", "Policies /pk/policies",
				"PKP https://pkp.sfu.ca", "Dashboard /pk/submissions", "-Administration /index/admin",
			},
		},
		{
			name:   "site page",
			viewer: navigation.Viewer{LoggedIn: true, Locale: "en"},
			want: []string{
				"About /index/about", "Policies /index/policies", "PKP https://pkp.sfu.ca", "Dashboard /index/submissions",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string

			var flatten func(links []navigation.Link, prefix string)

			flatten = func(links []navigation.Link, prefix string) {
				for _, l := range links {
					got = append(got, prefix+l.Title+" "+l.URL)
					flatten(l.Children, prefix+"-")
				}
			}

			flatten(navigation.Links(tree, tc.viewer), "")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestService_Load(t *testing.T) {
	s := setup(t)
	ctx := context.Background()

	require.NoError(t, s.LoadFile(ctx, 1, "../../etc/registry/navigationMenus.xml"))

	menus, err := s.Menus(ctx, 1)
	require.NoError(t, err)
	require.Len(t, menus, 2)

	links, err := s.MenuLinks(ctx, 1, "primary", navigation.Viewer{ContextPath: "pk", Locale: "en"})
	require.NoError(t, err)

	titles := make([]string, 0, len(links))
	for _, l := range links {
		titles = append(titles, l.Title)
	}

	assert.Equal(t, []string{"Current", "Archives", "About", "Search"}, titles)
	require.Len(t, links[2].Children, 4)
	assert.Equal(t, "About the Journal", links[2].Children[0].Title)

	user, err := s.MenuLinks(ctx, 1, "user", navigation.Viewer{LoggedIn: true, ContextPath: "pk", Locale: "en"})
	require.NoError(t, err)
	require.Len(t, user, 1)
	assert.Equal(t, "My Account", user[0].Title)
	assert.Len(t, user[0].Children, 3)

	items, err := s.ItemsOf(ctx, 1, "")
	require.NoError(t, err)

	// a second load keeps menus and items
	f, err := os.ReadFile("../../etc/registry/navigationMenus.xml")
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, 1, strings.NewReader(string(f))))

	again, err := s.ItemsOf(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, again, len(items))

	err = s.Load(ctx, 1, strings.NewReader(`<navigationMenus><navigationMenuItem type="NMI_TYPE_X"/></navigationMenus>`))
	require.Error(t, err)
}
