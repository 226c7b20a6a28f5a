package server

import (
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/interpreter"
	"github.com/oarkflow/bella/pkg/history"
)

type Config struct {
	Version   string
	Prefork   bool
	BodyLimit int
	// CacheSize is the number of parsed programs kept; 0 disables the cache.
	CacheSize int
	// RequestLog enables fiber's access log middleware.
	RequestLog bool
}

type Server struct {
	app      *fiber.App
	store    history.Store
	recorder *history.Recorder
	programs *ristretto.Cache
	config   Config
	logger   *log.Logger
}

type SourceRequest struct {
	Source string          `json:"source"`
	AST    json.RawMessage `json:"ast,omitempty"`
}

type RunResponse struct {
	ID       string  `json:"id"`
	Output   []any   `json:"output"`
	Error    string  `json:"error,omitempty"`
	Code     string  `json:"code,omitempty"`
	Duration float64 `json:"duration_ms"`
	Cached   bool    `json:"cached"`
}

type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func New(cfg Config, store history.Store, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	if store == nil {
		store = history.NewMemoryStore(0)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	fcfg := fiber.Config{
		AppName:               "bella",
		Prefork:               cfg.Prefork,
		DisableStartupMessage: true,
		JSONEncoder: func(v any) ([]byte, error) {
			return json.Marshal(v)
		},
		JSONDecoder: func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	}
	if cfg.BodyLimit > 0 {
		fcfg.BodyLimit = cfg.BodyLimit
	}
	s := &Server{
		app:      fiber.New(fcfg),
		store:    store,
		recorder: history.NewRecorder(store, logger),
		config:   cfg,
		logger:   logger,
	}
	if cfg.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters:        int64(cfg.CacheSize * 10),
			MaxCost:            int64(cfg.CacheSize),
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, err
		}
		s.programs = cache
	}
	s.setupRoutes()
	return s, nil
}

// Recorder returns the recorder shared by the run endpoints.
func (s *Server) Recorder() *history.Recorder {
	return s.recorder
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())
	if s.config.RequestLog {
		s.app.Use(logger.New())
	}

	s.app.Get("/api/health", s.healthHandler)

	s.app.Post("/api/run", s.runHandler)
	s.app.Post("/api/parse", s.parseHandler)
	s.app.Post("/api/validate", s.validateHandler)

	s.app.Get("/api/runs", s.getRunsHandler)
	s.app.Get("/api/runs/:id", s.getRunHandler)
}

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) runHandler(c *fiber.Ctx) error {
	req, err := decodeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	ctx := c.UserContext()

	var (
		run    history.Run
		cached bool
	)
	switch {
	case len(req.AST) > 0:
		program, decodeErr := bella.DecodeProgram(req.AST)
		if decodeErr != nil {
			run, err = s.recorder.RecordError(ctx, string(req.AST), decodeErr)
		} else {
			run, err = s.recorder.RecordProgram(ctx, string(req.AST), program)
		}
	case strings.TrimSpace(req.Source) == "":
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Source cannot be empty"})
	default:
		var program *interpreter.Program
		program, cached, err = s.program(req.Source)
		if err != nil {
			run, err = s.recorder.RecordError(ctx, req.Source, err)
		} else {
			run, err = s.recorder.RecordProgram(ctx, req.Source, program)
		}
	}
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if run.Failed() {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(RunResponse{
		ID:       run.ID,
		Output:   run.Output,
		Error:    run.Error,
		Code:     run.ErrorCode,
		Duration: float64(run.Duration) / float64(time.Millisecond),
		Cached:   cached,
	})
}

func (s *Server) parseHandler(c *fiber.Ctx) error {
	req, err := decodeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	program, _, err := s.program(req.Source)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, err)
	}
	tree, err := interpreter.ProgramTree(program)
	if err != nil {
		return err
	}
	return c.JSON(tree)
}

func (s *Server) validateHandler(c *fiber.Ctx) error {
	req, err := decodeRequest(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	errs := []string{}
	if _, _, err := s.program(req.Source); err != nil {
		var bellaErr *bella.BellaError
		if errors.As(err, &bellaErr) && len(bellaErr.Details) > 0 {
			errs = bellaErr.Details
		} else {
			errs = append(errs, err.Error())
		}
	}
	return c.JSON(ValidationResponse{
		Valid:  len(errs) == 0,
		Errors: errs,
	})
}

func (s *Server) getRunsHandler(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	runs, err := s.store.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []history.Run{}
	}
	return c.JSON(runs)
}

func (s *Server) getRunHandler(c *fiber.Ctx) error {
	run, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.JSON(run)
}

// program returns the parsed form of source, reusing earlier parses.
func (s *Server) program(source string) (*interpreter.Program, bool, error) {
	if s.programs != nil {
		if v, ok := s.programs.Get(source); ok {
			if program, ok := v.(*interpreter.Program); ok {
				return program, true, nil
			}
		}
	}
	program, err := bella.Parse(source)
	if err != nil {
		return nil, false, err
	}
	if s.programs != nil {
		s.programs.Set(source, program, 1)
		s.programs.Wait()
	}
	return program, false, nil
}

func decodeRequest(c *fiber.Ctx) (SourceRequest, error) {
	var req SourceRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, err
	}
	return req, nil
}

func errorResponse(c *fiber.Ctx, status int, err error) error {
	body := fiber.Map{"error": err.Error()}
	var bellaErr *bella.BellaError
	if errors.As(err, &bellaErr) {
		body["code"] = bellaErr.Code
		if len(bellaErr.Details) > 0 {
			body["details"] = bellaErr.Details
		}
	}
	return c.Status(status).JSON(body)
}

func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting bella server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.logger.Info().Msg("shutting down bella server")
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	if s.programs != nil {
		s.programs.Close()
	}
	return s.store.Close()
}
