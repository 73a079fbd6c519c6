package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"

	"imged/internal/compositor"
	"imged/internal/cropratio"
	"imged/internal/geometry"
	"imged/internal/snapshot"
	"imged/internal/store"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

const maxBodyBytes = 32 << 20

type Config struct {
	// Addr to listen on. Port 0 lets the OS assign a free port.
	Addr string

	// RootDir, when set, is served as a library of source images.
	RootDir string

	// ListLimit applies to session listings that carry no limit.
	ListLimit int

	Store            store.Store
	Exporter         *compositor.Exporter
	OnBeforeShutdown func()
	OnReady          func(addr string)
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	if config.Addr == "" {
		config.Addr = "localhost:0"
	}
	if config.ListLimit == 0 {
		config.ListLimit = store.DefaultLimit
	}
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

type createSessionRequest struct {
	ImageDataURL     string             `json:"imageDataUrl"`
	OriginalFileName string             `json:"originalFileName"`
	Snapshot         *snapshot.Snapshot `json:"snapshot"`
	IsTemplate       bool               `json:"isTemplate"`
	IsPublic         *bool              `json:"isPublic"`
}

type sessionSummary struct {
	ID               string    `json:"id"`
	ImageDataURL     string    `json:"imageDataUrl"`
	OriginalFileName string    `json:"originalFileName"`
	IsTemplate       bool      `json:"isTemplate"`
	IsPublic         bool      `json:"isPublic"`
	CreatedAt        time.Time `json:"createdAt"`
}

type exportRequest struct {
	ImageDataURL     string             `json:"imageDataUrl"`
	Source           string             `json:"source"`
	OriginalFileName string             `json:"originalFileName"`
	Snapshot         *snapshot.Snapshot `json:"snapshot"`
}

type presetRequest struct {
	Aspect string         `json:"aspect"`
	Crop   *geometry.Rect `json:"crop"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	log.Ctx(c.UserContext()).Error().
		Err(err).
		Msg("Request failed")
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
			return nil
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// App builds the fiber application with every route mounted.
func (a *WebApp) App() *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             maxBodyBytes,
		ErrorHandler:          errorHandler,
	})

	webapp.Use(func(c *fiber.Ctx) error {
		logger := log.Logger.With().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	})

	webapp.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	webapp.Post("/api/sessions", a.createSession)
	webapp.Get("/api/sessions", a.listSessions)
	webapp.Get("/api/sessions/:id", a.getSession)
	webapp.Get("/api/sessions/:id/export", a.exportSession)
	webapp.Post("/api/export", a.export)
	webapp.Post("/api/preset", a.resolvePreset)

	if a.config.RootDir != "" {
		filesRoot := http.Dir(a.config.RootDir)
		webapp.Get("/api/images/view", func(c *fiber.Ctx) error {
			filePath := c.Query("file")
			if !isSourceImage(filePath) {
				return fiber.NewError(http.StatusBadRequest, "not an image")
			}
			return filesystem.SendFile(c, filesRoot, filePath)
		})

		webapp.Get("/api/images", func(c *fiber.Ctx) error {
			lib, err := walkImages(c.UserContext(), a.config.RootDir)
			if err != nil {
				return fmt.Errorf("failed to walk dir: %w", err)
			}
			for i := range lib.Images {
				lib.Images[i].URL = "/api/images/view?file=" + url.QueryEscape(lib.Images[i].Name)
			}
			return c.JSON(lib)
		})
	}

	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) createSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	sess := snapshot.Session{
		ImageDataURL:     req.ImageDataURL,
		OriginalFileName: req.OriginalFileName,
		Snapshot:         req.Snapshot,
		IsTemplate:       req.IsTemplate,
		IsPublic:         req.IsPublic == nil || *req.IsPublic,
	}
	if err := sess.Validate(); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	created, err := a.config.Store.Create(c.UserContext(), sess)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	log.Ctx(c.UserContext()).Info().Str("id", created.ID).Msg("session created")
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": created.ID})
}

func (a *WebApp) listSessions(c *fiber.Ctx) error {
	q := store.Query{
		Kind:  store.Kind(c.Query("kind")),
		Limit: a.config.ListLimit,
	}
	if c.Request().URI().QueryArgs().Has("limit") {
		n, _ := strconv.Atoi(c.Query("limit"))
		q.Limit = min(max(n, 1), store.MaxLimit)
	}

	sessions, err := a.config.Store.List(c.UserContext(), q)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionSummary{
			ID:               s.ID,
			ImageDataURL:     s.ImageDataURL,
			OriginalFileName: s.OriginalFileName,
			IsTemplate:       s.IsTemplate,
			IsPublic:         s.IsPublic,
			CreatedAt:        s.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"items": items})
}

func (a *WebApp) lookupSession(c *fiber.Ctx) (snapshot.Session, error) {
	sess, err := a.config.Store.Get(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return sess, fiber.NewError(http.StatusBadRequest, "Invalid id")
	case errors.Is(err, store.ErrNotFound):
		return sess, fiber.NewError(http.StatusNotFound, "Not found")
	case err != nil:
		return sess, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

func (a *WebApp) getSession(c *fiber.Ctx) error {
	sess, err := a.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(sess)
}

func (a *WebApp) exportSession(c *fiber.Ctx) error {
	sess, err := a.lookupSession(c)
	if err != nil {
		return err
	}
	exp, ok := a.config.Exporter.ExportSession(c.UserContext(), sess)
	return sendExport(c, exp, ok)
}

func (a *WebApp) export(c *fiber.Ctx) error {
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if req.Snapshot == nil {
		return fiber.NewError(http.StatusBadRequest, snapshot.ErrMissingSnapshot.Error())
	}

	var data []byte
	switch {
	case req.ImageDataURL != "":
		_, payload, err := snapshot.DecodeDataURL(req.ImageDataURL)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		data = payload
	case req.Source != "" && a.config.RootDir != "":
		payload, _, err := readSourceImage(a.config.RootDir, req.Source)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		data = payload
		if req.OriginalFileName == "" {
			req.OriginalFileName = req.Source
		}
	default:
		return fiber.NewError(http.StatusBadRequest, snapshot.ErrMissingImage.Error())
	}

	exp, ok := a.config.Exporter.Export(c.UserContext(), data, *req.Snapshot, req.OriginalFileName)
	return sendExport(c, exp, ok)
}

// sendExport writes the encoded image as an attachment, or 204 when the
// export produced nothing.
func sendExport(c *fiber.Ctx, exp *compositor.Export, ok bool) error {
	if !ok {
		return c.SendStatus(http.StatusNoContent)
	}
	c.Attachment(exp.Filename)
	c.Set(fiber.HeaderContentType, exp.ContentType())
	return c.Send(exp.Data)
}

func (a *WebApp) resolvePreset(c *fiber.Ctx) error {
	var req presetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	crop, err := cropratio.ResolveTag(req.Aspect, req.Crop)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(fiber.Map{"crop": crop})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.App()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	listener, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
