package api

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/yearbook/pkg/journal"
	"github.com/papercomputeco/yearbook/pkg/media"
	"github.com/papercomputeco/yearbook/pkg/record"
	"github.com/papercomputeco/yearbook/pkg/storage"
	"github.com/papercomputeco/yearbook/pkg/utils"
)

// StatusResponse describes what the server is bound to.
type StatusResponse struct {
	Backing         storage.Backing `json:"backing"`
	Reason          string          `json:"reason,omitempty"`
	MediaConfigured bool            `json:"media_configured"`
	Events          string          `json:"events,omitempty"`
	Version         string          `json:"version"`
}

// DeleteResponse reports whether a record existed and was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// MediaResponse carries a resolved media URL.
type MediaResponse struct {
	URL string `json:"url"`
}

// LetterRequest is the body of POST /letters.
type LetterRequest struct {
	Message      string `json:"message"`
	Recipient    string `json:"recipient"`
	Sender       string `json:"sender,omitempty"`
	ScheduledFor string `json:"scheduled_for,omitempty"`
}

// collections the generic endpoints may touch.
var collections = map[string]bool{
	record.Memories: true,
	record.Letters:  true,
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Backing:         s.journal.Backing(),
		Reason:          s.config.BindingReason,
		MediaConfigured: s.journal.MediaConfigured(),
		Events:          s.config.EventsProvider,
		Version:         utils.Version,
	})
}

// handleQueryCollection handles
// GET /collections/:collection?eq=<field>:<value>&order=<field>.<asc|desc>.
func (s *Server) handleQueryCollection(c *fiber.Ctx) error {
	collection := c.Params("collection")
	if !collections[collection] {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown collection"})
	}

	q, err := ParseQuery(c.Query("eq"), c.Query("order"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	rows, err := s.journal.Query(c.UserContext(), collection, q)
	if err != nil {
		return s.fail(c, "querying collection", err)
	}

	return c.JSON(rows)
}

// handleDeleteRecord handles DELETE /collections/:collection/:id.
func (s *Server) handleDeleteRecord(c *fiber.Ctx) error {
	collection := c.Params("collection")
	if !collections[collection] {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "unknown collection"})
	}

	removed, err := s.journal.DeleteRecord(c.UserContext(), collection, c.Params("id"))
	if err != nil {
		return s.fail(c, "deleting record", err)
	}

	return c.JSON(DeleteResponse{Deleted: removed})
}

func (s *Server) handleListYear(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	memories, err := s.journal.ListYear(c.UserContext(), year)
	if err != nil {
		return s.fail(c, "listing year", err)
	}

	return c.JSON(memories)
}

// handlePostMemory handles a multipart POST /memories with the fields
// content, author, external_url, year_number, created_at and any number of
// "files" parts.
func (s *Server) handlePostMemory(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "multipart form required"})
	}

	year, err := strconv.Atoi(formValue(form.Value, "year_number"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "year_number must be an integer"})
	}

	draft := journal.Draft{
		Content:     formValue(form.Value, "content"),
		Author:      formValue(form.Value, "author"),
		ExternalURL: formValue(form.Value, "external_url"),
		CreatedAt:   formValue(form.Value, "created_at"),
		YearNumber:  year,
	}

	for _, fh := range form.File["files"] {
		open := func() (io.ReadCloser, error) { return fh.Open() }
		f, err := media.FileFromOpener(fh.Filename, fh.Header.Get(fiber.HeaderContentType), fh.Size, open)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		draft.Files = append(draft.Files, f)
	}

	m, err := s.journal.Post(c.UserContext(), draft)
	if err != nil {
		return s.fail(c, "posting memory", err)
	}

	return c.Status(fiber.StatusCreated).JSON(m)
}

// handleResolveMedia handles GET /media/:ref.
func (s *Server) handleResolveMedia(c *fiber.Ctx) error {
	url, ok, err := s.journal.Resolve(c.UserContext(), c.Params("ref"))
	if err != nil {
		return s.fail(c, "resolving media", err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no URL available"})
	}

	return c.JSON(MediaResponse{URL: url})
}

// handleListLetters handles GET /letters?delivered=<bool>.
func (s *Server) handleListLetters(c *fiber.Ctx) error {
	var delivered *bool
	if raw := c.Query("delivered"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "delivered must be a boolean"})
		}
		delivered = &b
	}

	letters, err := s.journal.ListLetters(c.UserContext(), delivered)
	if err != nil {
		return s.fail(c, "listing letters", err)
	}

	return c.JSON(letters)
}

func (s *Server) handleWriteLetter(c *fiber.Ctx) error {
	var req LetterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	l, err := s.journal.WriteLetter(c.UserContext(), journal.LetterDraft{
		Message:      req.Message,
		Recipient:    req.Recipient,
		Sender:       req.Sender,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		return s.fail(c, "writing letter", err)
	}

	return c.Status(fiber.StatusCreated).JSON(l)
}

// ParseQuery builds a storage.Query from the eq and order query parameters.
// eq is "<field>:<value>"; the values null, true and false are typed,
// anything else is compared as given. order is "<field>.<asc|desc>".
func ParseQuery(eq, order string) (storage.Query, error) {
	var q storage.Query

	if eq != "" {
		field, value, ok := strings.Cut(eq, ":")
		if !ok {
			return q, fmt.Errorf("eq must be <field>:<value>, got %q", eq)
		}
		q.Equals = storage.Eq(field, filterValue(value))
	}

	if order != "" {
		field, dir, _ := strings.Cut(order, ".")
		switch strings.ToLower(dir) {
		case "asc":
			q.OrderBy = storage.Asc(field)
		case "desc", "":
			q.OrderBy = storage.Desc(field)
		default:
			return q, fmt.Errorf("order direction must be asc or desc, got %q", dir)
		}
	}

	if err := q.Validate(); err != nil {
		return q, err
	}

	return q, nil
}

func filterValue(raw string) any {
	switch raw {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

func yearParam(c *fiber.Ctx) (int, error) {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year <= 0 {
		return 0, fmt.Errorf("year must be a positive integer, got %q", c.Params("year"))
	}
	return year, nil
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}
