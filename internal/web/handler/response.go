package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/entity"
	"github.com/pkp/pkplib/internal/navigation"
	"github.com/pkp/pkplib/internal/schema"
	"github.com/pkp/pkplib/internal/search"
	"github.com/pkp/pkplib/internal/site"
)

const msgInvalid = "The request contains invalid properties."

// ErrorResponse is the json body of a failed api call.
type ErrorResponse struct {
	Error  string        `json:"error"`
	Errors schema.Errors `json:"errors,omitempty"`
}

// ListResponse is one page of a collection.
type ListResponse[T any] struct {
	ItemsMax int64 `json:"itemsMax"`
	Items    []T   `json:"items"`
}

// Status maps an error returned by the services onto a http status.
func Status(err error) int {
	var fe *fiber.Error

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, dao.ErrNotFound), errors.Is(err, navigation.ErrMenuNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, navigation.ErrTitleTaken), errors.Is(err, navigation.ErrAreaTaken):
		return fiber.StatusConflict
	case errors.Is(err, entity.ErrInvalid),
		errors.Is(err, site.ErrInvalid),
		errors.Is(err, navigation.ErrTitleEmpty),
		errors.Is(err, navigation.ErrItemNotInContext),
		errors.Is(err, navigation.ErrDuplicateItem),
		errors.Is(err, search.ErrEmptyQuery):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler answers every failed request with an ErrorResponse. Server errors are
// logged and their message is not exposed.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := Status(err)
	msg := err.Error()

	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

		msg = http.StatusText(code)
	}

	return c.Status(code).JSON(ErrorResponse{Error: msg})
}

// Invalid answers with the validation messages of a rejected edit.
func Invalid(c fiber.Ctx, errs schema.Errors) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msgInvalid, Errors: errs})
}

// ID parses the numeric route parameter name.
func ID(c fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return id, nil
}

// QueryID parses an optional numeric query parameter. A missing parameter is 0.
func QueryID(c fiber.Ctx, name string) (uint64, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}

	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return id, nil
}

// MaxPerPage bounds the perPage query parameter.
const MaxPerPage = 100

// Paging reads the page and perPage query parameters. perPage is capped at MaxPerPage.
func Paging(c fiber.Ctx, defaultPerPage int) dao.Paging {
	p := dao.Paging{
		Page:    fiber.Query[int](c, "page", 1),
		PerPage: fiber.Query[int](c, "perPage", defaultPerPage),
	}

	if p.Page < 1 {
		p.Page = 1
	}

	if p.PerPage < 1 {
		p.PerPage = defaultPerPage
	}

	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}

	return p
}

// Props decodes a json object body.
func Props(c fiber.Ctx) (map[string]any, error) {
	props := map[string]any{}
	if err := c.Bind().JSON(&props); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}

	return props, nil
}
