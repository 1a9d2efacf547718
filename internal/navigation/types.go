package navigation

import (
	"maps"
	"slices"
	"strings"

	"github.com/pkp/pkplib/internal/dataobject"
)

// Item types.
const (
	TypeAbout          = "NMI_TYPE_ABOUT"
	TypeSubmissions    = "NMI_TYPE_SUBMISSIONS"
	TypeEditorialTeam  = "NMI_TYPE_EDITORIAL_TEAM"
	TypeContact        = "NMI_TYPE_CONTACT"
	TypeAnnouncements  = "NMI_TYPE_ANNOUNCEMENTS"
	TypeCurrent        = "NMI_TYPE_CURRENT"
	TypeArchives       = "NMI_TYPE_ARCHIVES"
	TypeSearch         = "NMI_TYPE_SEARCH"
	TypePrivacy        = "NMI_TYPE_PRIVACY"
	TypeCustom         = "NMI_TYPE_CUSTOM"
	TypeRemoteURL      = "NMI_TYPE_REMOTE_URL"
	TypeUserLogin      = "NMI_TYPE_USER_LOGIN"
	TypeUserRegister   = "NMI_TYPE_USER_REGISTER"
	TypeUserLogout     = "NMI_TYPE_USER_LOGOUT"
	TypeUserProfile    = "NMI_TYPE_USER_PROFILE"
	TypeUserDashboard  = "NMI_TYPE_USER_DASHBOARD"
	TypeAdministration = "NMI_TYPE_ADMINISTRATION"
)

// Viewer describes who a menu is rendered for.
type Viewer struct {
	LoggedIn bool
	Admin    bool
	// Context holds the settings of the current context; nil on site pages.
	Context *dataobject.DataObject
	// ContextPath is the url path of the current context, "index" on site pages.
	ContextPath string
	Locale      string
}

// ItemType describes how items of one type are titled, linked and displayed.
type ItemType struct {
	Name string
	// Title is used when an item has no title of its own.
	Title string
	// Page is the context relative page linked by the item.
	Page string
	// Visible reports whether the item is shown to v; nil shows it always.
	Visible func(v Viewer) bool
}

func loggedIn(v Viewer) bool  { return v.LoggedIn }
func loggedOut(v Viewer) bool { return !v.LoggedIn }

func contextSetting(name string) func(v Viewer) bool {
	return func(v Viewer) bool {
		return v.Context != nil && v.Context.GetBool(name)
	}
}

// types lists the known item types.
var types = map[string]ItemType{ //nolint:gochecknoglobals
	TypeAbout:         {Name: TypeAbout, Title: "About", Page: "about"},
	TypeSubmissions:   {Name: TypeSubmissions, Title: "Submissions", Page: "about/submissions"},
	TypeEditorialTeam: {Name: TypeEditorialTeam, Title: "Editorial Team", Page: "about/editorialTeam"},
	TypeContact: {Name: TypeContact, Title: "Contact", Page: "about/contact", Visible: func(v Viewer) bool {
		return v.Context != nil && (v.Context.GetString("contactName") != "" || v.Context.GetString("contactEmail") != "")
	}},
	TypeAnnouncements: {
		Name: TypeAnnouncements, Title: "Announcements", Page: "announcement",
		Visible: contextSetting("enableAnnouncements"),
	},
	TypeCurrent:      {Name: TypeCurrent, Title: "Current", Page: "issue/current"},
	TypeArchives:     {Name: TypeArchives, Title: "Archives", Page: "issue/archive"},
	TypeSearch:       {Name: TypeSearch, Title: "Search", Page: "search"},
	TypePrivacy:      {Name: TypePrivacy, Title: "Privacy Statement", Page: "about/privacy"},
	TypeCustom:       {Name: TypeCustom, Title: "Custom Page"},
	TypeRemoteURL:    {Name: TypeRemoteURL, Title: "Remote URL"},
	TypeUserLogin:    {Name: TypeUserLogin, Title: "Login", Page: "login", Visible: loggedOut},
	TypeUserRegister: {Name: TypeUserRegister, Title: "Register", Page: "user/register", Visible: loggedOut},
	TypeUserLogout:   {Name: TypeUserLogout, Title: "Logout", Page: "login/signOut", Visible: loggedIn},
	TypeUserProfile:  {Name: TypeUserProfile, Title: "View Profile", Page: "user/profile", Visible: loggedIn},
	TypeUserDashboard: {
		Name: TypeUserDashboard, Title: "Dashboard", Page: "submissions", Visible: loggedIn,
	},
	TypeAdministration: {
		Name: TypeAdministration, Title: "Administration", Page: "admin",
		Visible: func(v Viewer) bool { return v.Admin },
	},
}

// Type returns the item type with name.
func Type(name string) (ItemType, bool) {
	t, ok := types[name]

	return t, ok
}

// Types returns the names of all item types.
func Types() []string {
	return slices.Sorted(maps.Keys(types))
}

// URL returns the link of an item for v. Remote items link to their localized url,
// custom items to their path below the context.
func URL(item *dataobject.DataObject, v Viewer) string {
	ctxPath := v.ContextPath
	if ctxPath == "" {
		ctxPath = "index"
	}

	switch typ := item.GetString("type"); typ {
	case TypeRemoteURL:
		return item.GetLocalizedString("remoteUrl", v.Locale, primaryLocale(v))
	case TypeCustom:
		return "/" + ctxPath + "/" + strings.TrimPrefix(item.GetString("path"), "/")
	case TypeAdministration:
		return "/index/admin"
	default:
		t, ok := types[typ]
		if !ok {
			return ""
		}

		return "/" + ctxPath + "/" + t.Page
	}
}

// Visible reports whether item is shown to v.
func Visible(item *dataobject.DataObject, v Viewer) bool {
	t, ok := types[item.GetString("type")]
	if !ok {
		return false
	}

	switch t.Name {
	case TypeRemoteURL:
		return URL(item, v) != ""
	case TypeCustom:
		return item.GetString("path") != ""
	}

	return t.Visible == nil || t.Visible(v)
}

func primaryLocale(v Viewer) string {
	if v.Context == nil {
		return ""
	}

	return v.Context.GetString("primaryLocale")
}
