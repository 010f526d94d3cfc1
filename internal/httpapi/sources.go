package httpapi

import (
	"bytes"
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/relayforge/knowbase/internal/apperr"
	"github.com/relayforge/knowbase/internal/domain"
	"github.com/relayforge/knowbase/internal/objectstore"
	"github.com/relayforge/knowbase/internal/parsers"
	"github.com/relayforge/knowbase/pkg/utils"
)

const maxUploadBytes = 50 * 1024 * 1024

type SourceStore interface {
	CreateSource(ctx context.Context, src *domain.Source) (*domain.Source, error)
	GetSource(ctx context.Context, id string) (*domain.Source, error)
	ListSourcesByBot(ctx context.Context, botID string) ([]domain.Source, error)
	UpdateSourceStoragePath(ctx context.Context, id, storagePath string) error
	ResetSourceForReingest(ctx context.Context, id string) error
	DeleteSource(ctx context.Context, id string) error
	DeleteChunksBySource(ctx context.Context, sourceID string) error
}

type Enqueuer interface {
	Enqueue(sourceID string)
}

type SourceHandler struct {
	bots    BotStore
	sources SourceStore
	objects objectstore.Store
	coord   Enqueuer
}

func NewSourceHandler(bots BotStore, sources SourceStore, objects objectstore.Store, coord Enqueuer) *SourceHandler {
	return &SourceHandler{bots: bots, sources: sources, objects: objects, coord: coord}
}

func (h *SourceHandler) ownedBot(c *fiber.Ctx) (*domain.Bot, error) {
	return h.bots.GetBotOwned(c.Context(), c.Params("id"), UserID(c))
}

func (h *SourceHandler) Upload(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(c, apperr.New(apperr.KindValidationFailed, "file form field is required"))
	}
	if fileHeader.Size == 0 {
		return fail(c, apperr.New(apperr.KindValidationFailed, "uploaded file is empty"))
	}
	if fileHeader.Size > maxUploadBytes {
		return fail(c, apperr.New(apperr.KindPayloadTooLarge, "uploaded file exceeds 50MB limit"))
	}

	mime := fileHeader.Header.Get("Content-Type")
	sourceType, err := parsers.MimeToSourceType(mime)
	if err != nil {
		return fail(c, err)
	}

	f, err := fileHeader.Open()
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindInternal, "failed to open uploaded file", err))
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return fail(c, apperr.Wrap(apperr.KindInternal, "failed to read uploaded file", err))
	}

	src, err := h.sources.CreateSource(c.Context(), &domain.Source{
		BotID:      bot.ID,
		SourceType: sourceType,
		Status:     domain.SourceStatusUploaded,
		MimeType:   mime,
		FileSize:   fileHeader.Size,
		Checksum:   utils.SHA256Hex(string(content)),
	})
	if err != nil {
		return fail(c, err)
	}

	key := objectstore.Key(bot.ID, src.ID, fileHeader.Filename)
	if err := h.objects.Put(c.Context(), key, bytes.NewReader(content), int64(len(content)), mime); err != nil {
		return fail(c, apperr.Wrap(apperr.KindInternal, "failed to store uploaded file", err))
	}
	if err := h.sources.UpdateSourceStoragePath(c.Context(), src.ID, key); err != nil {
		return fail(c, err)
	}
	src.StoragePath = key

	h.coord.Enqueue(src.ID)

	return created(c, src)
}

type submitURLRequest struct {
	URL string `json:"url"`
}

func (h *SourceHandler) SubmitURL(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}

	var req submitURLRequest
	if err := c.BodyParser(&req); err != nil || req.URL == "" {
		return fail(c, apperr.New(apperr.KindValidationFailed, "url is required"))
	}

	src, err := h.sources.CreateSource(c.Context(), &domain.Source{
		BotID:       bot.ID,
		SourceType:  domain.SourceTypeURL,
		Status:      domain.SourceStatusUploaded,
		OriginalURL: req.URL,
	})
	if err != nil {
		return fail(c, err)
	}

	h.coord.Enqueue(src.ID)

	return created(c, src)
}

func (h *SourceHandler) List(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}
	sources, err := h.sources.ListSourcesByBot(c.Context(), bot.ID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, sources)
}

func (h *SourceHandler) Get(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}
	src, err := h.sources.GetSource(c.Context(), c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	if src.BotID != bot.ID {
		return fail(c, apperr.New(apperr.KindForbidden, "source does not belong to this bot"))
	}
	return ok(c, src)
}

// Retry re-submits a failed source in place: it resets status to uploaded
// and re-enqueues it, rather than requiring the caller to delete and
// recreate the source.
func (h *SourceHandler) Retry(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}
	src, err := h.sources.GetSource(c.Context(), c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	if src.BotID != bot.ID {
		return fail(c, apperr.New(apperr.KindForbidden, "source does not belong to this bot"))
	}
	if src.Status != domain.SourceStatusFailed {
		return fail(c, apperr.New(apperr.KindValidationFailed, "only a failed source can be retried"))
	}

	if err := h.sources.ResetSourceForReingest(c.Context(), src.ID); err != nil {
		return fail(c, err)
	}
	h.coord.Enqueue(src.ID)

	return ok(c, fiber.Map{"retried": true})
}

func (h *SourceHandler) Delete(c *fiber.Ctx) error {
	bot, err := h.ownedBot(c)
	if err != nil {
		return fail(c, err)
	}
	src, err := h.sources.GetSource(c.Context(), c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	if src.BotID != bot.ID {
		return fail(c, apperr.New(apperr.KindForbidden, "source does not belong to this bot"))
	}

	if err := h.sources.DeleteChunksBySource(c.Context(), src.ID); err != nil {
		return fail(c, err)
	}
	if src.StoragePath != "" {
		_ = h.objects.Delete(c.Context(), src.StoragePath)
	}
	if err := h.sources.DeleteSource(c.Context(), src.ID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"deleted": true})
}
