package statkit

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/statkit/internal/libs/serializer"
	"github.com/hyp3rd/statkit/internal/sentinel"
	"github.com/hyp3rd/statkit/pkg/histogram"
)

// ManagementHTTPOption configures the management HTTP server.
type ManagementHTTPOption func(*ManagementHTTPServer)

// ManagementHTTPServer holds Fiber app and settings.
type ManagementHTTPServer struct {
	addr         string
	app          *fiber.App
	readTimeout  time.Duration
	writeTimeout time.Duration
	authFunc     func(fiber.Ctx) error
	ln           net.Listener
	started      bool
}

// WithMgmtAuth sets an auth function (return error to block).
func WithMgmtAuth(fn func(fiber.Ctx) error) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.authFunc = fn }
}

// WithMgmtReadTimeout sets read timeout.
func WithMgmtReadTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.readTimeout = d }
}

// WithMgmtWriteTimeout sets write timeout.
func WithMgmtWriteTimeout(d time.Duration) ManagementHTTPOption {
	return func(s *ManagementHTTPServer) { s.writeTimeout = d }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// NewManagementHTTPServer builds an HTTP server holder (lazy start).
func NewManagementHTTPServer(addr string, opts ...ManagementHTTPOption) *ManagementHTTPServer {
	srv := &ManagementHTTPServer{
		addr:         addr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return srv
}

// Start launches listener (idempotent). Caller provides the service for handler wiring.
func (s *ManagementHTTPServer) Start(ctx context.Context, svc Service) error {
	if s.started {
		return nil
	}

	s.mountRoutes(ctx, svc)

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "mgmt listen")
	}

	s.ln = ln

	go func() {
		_ = s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *ManagementHTTPServer) Address() string {
	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *ManagementHTTPServer) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrMgmtHTTPShutdownTimeout
	case err := <-ch:
		return err
	}
}

func (s *ManagementHTTPServer) mountRoutes(ctx context.Context, svc Service) {
	useAuth := s.wrapAuth
	s.registerSnapshots(useAuth, svc)
	s.registerControl(ctx, useAuth, svc)
	s.registerHistogram(ctx, useAuth, svc)
}

// wrapAuth returns an auth-wrapped handler if authFunc provided.
func (s *ManagementHTTPServer) wrapAuth(handler fiber.Handler) fiber.Handler { //nolint:ireturn
	if s.authFunc == nil {
		return handler
	}

	return func(fiberCtx fiber.Ctx) error {
		authErr := s.authFunc(fiberCtx)
		if authErr != nil {
			return authErr
		}

		return handler(fiberCtx)
	}
}

func (s *ManagementHTTPServer) registerSnapshots(useAuth func(fiber.Handler) fiber.Handler, svc Service) {
	s.app.Get("/health", useAuth(func(fiberCtx fiber.Ctx) error { return fiberCtx.SendString("ok") }))
	s.app.Get("/statistics", useAuth(snapshotHandler(svc, SnapshotStatistics)))
	s.app.Get("/distribution", useAuth(snapshotHandler(svc, SnapshotDistribution)))
	s.app.Get("/distribution/statistics", useAuth(snapshotHandler(svc, SnapshotMeans)))
	s.app.Get("/parameters", useAuth(func(fiberCtx fiber.Ctx) error { return fiberCtx.JSON(svc.Parameters()) }))
}

func (s *ManagementHTTPServer) registerControl(ctx context.Context, useAuth func(fiber.Handler) fiber.Handler, svc Service) {
	s.app.Put("/parameters", useAuth(func(fiberCtx fiber.Ctx) error {
		var body struct {
			N int `json:"n"`
			K int `json:"k"`
		}

		err := json.Unmarshal(fiberCtx.Body(), &body)
		if err != nil {
			return badRequest(fiberCtx, "invalid parameters")
		}

		dist, published, err := svc.UpdateParameters(ctx, body.N, body.K)
		if errors.Is(err, sentinel.ErrBootstrapLimit) {
			return badRequest(fiberCtx, err.Error())
		}

		if err != nil {
			return err
		}

		return fiberCtx.JSON(fiber.Map{"published": published, "distribution": dist})
	}))
	s.app.Put("/dataset", useAuth(func(fiberCtx fiber.Ctx) error {
		var values []float64

		err := json.Unmarshal(fiberCtx.Body(), &values)
		if err != nil {
			return badRequest(fiberCtx, "dataset must be a JSON array of numbers")
		}

		err = svc.Load(ctx, values)
		if err != nil {
			return err
		}

		ds := svc.Dataset()

		return fiberCtx.JSON(fiber.Map{"version": ds.Version(), "len": ds.Len(), "fingerprint": ds.Fingerprint()})
	}))
	s.app.Post("/recompute", useAuth(func(fiberCtx fiber.Ctx) error {
		dist, published, err := svc.Recompute(ctx)
		if err != nil {
			return err
		}

		return fiberCtx.JSON(fiber.Map{"published": published, "distribution": dist})
	}))
}

func (s *ManagementHTTPServer) registerHistogram(ctx context.Context, useAuth func(fiber.Handler) fiber.Handler, svc Service) {
	s.app.Get("/histogram", useAuth(func(fiberCtx fiber.Ctx) error {
		kind := SnapshotStatistics
		compute := svc.Histogram

		switch fiberCtx.Query("source", "data") {
		case "data":
		case "means":
			kind, compute = SnapshotMeans, svc.MeansHistogram
		default:
			return badRequest(fiberCtx, "source must be data or means")
		}

		cfg := svc.HistogramDefaults(kind)

		for name, dst := range map[string]*float64{"start": &cfg.Start, "end": &cfg.End, "step": &cfg.Step} {
			raw := fiberCtx.Query(name)
			if raw == "" {
				continue
			}

			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return badRequest(fiberCtx, "invalid "+name)
			}

			*dst = v
		}

		bins, err := compute(ctx, cfg)
		if err != nil {
			return badRequest(fiberCtx, err.Error())
		}

		return fiberCtx.JSON(fiber.Map{"config": cfg, "total": histogram.Total(bins), "bins": bins})
	}))
}

// formats only resolves Accept headers; encoding happens in Service.Export.
var formats = serializer.NewSerializerRegistry()

func snapshotHandler(svc Service, kind SnapshotKind) fiber.Handler {
	return func(fiberCtx fiber.Ctx) error {
		format := fiberCtx.Query("format")
		if format == "" {
			format = formats.Negotiate(fiberCtx.Get(fiber.HeaderAccept))
		}

		data, contentType, err := svc.Export(kind, format)
		if err != nil {
			if errors.Is(err, sentinel.ErrSerializerNotFound) {
				return badRequest(fiberCtx, "unsupported format")
			}

			return err
		}

		fiberCtx.Set(fiber.HeaderContentType, contentType)

		return fiberCtx.Send(data)
	}
}

func badRequest(fiberCtx fiber.Ctx, msg string) error {
	return fiberCtx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
