package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPrefix is the path prefix of the json api.
	APIPrefix = "/api/v1"

	// ErrNilDepsFatalLogMsg is used if app or one of the deps a handler needs is nil.
	ErrNilDepsFatalLogMsg = "app or handler dependencies are nil"
)
