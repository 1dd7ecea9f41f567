package echostub

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/auth"
	dummygw "github.com/trezcool/kozi/services/gateway/dummy"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Store          *dummygw.Gateway
		DisableReqLogs bool

		// TranscodeDelay, when set, turns a confirmed video READY after
		// the delay so pollers have a transition to observe.
		TranscodeDelay time.Duration
	}

	// Server is the stub course service: a real HTTP surface over the
	// in-memory store, good enough for local SPA/CLI development and
	// end-to-end gateway tests.
	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts    Options
		app     *echo.Echo
		jwtConf middleware.JWTConfig
		users   *userStore

		upMu    sync.Mutex
		uploads map[string][]byte // videoID -> received payload

		errCh  chan error
		shutCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(opts.Conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(auth.Claims),
		},
		users:   newUserStore(),
		uploads: make(map[string][]byte),
		errCh:   make(chan error, 1),
		shutCh:  make(chan os.Signal, 1),
	}
	signal.Notify(s.shutCh, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	// hand out upload URLs pointing back at this server
	s.opts.Store.SetUploadBaseURL("http://" + conf.Server.Host + conf.Server.Addr + "/v1/uploads")

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConf)

	s.registerAuthAPI(v1, jwt)
	s.registerCourseAPI(v1, jwt)
}

func (s *server) Start() {
	s.errCh <- s.app.Start(s.opts.Conf.Server.Addr)
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Errors() <-chan error {
	return s.errCh
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutCh
}

func (s *server) signalShutdown() {
	s.shutCh <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kozi Stub API!")
}
