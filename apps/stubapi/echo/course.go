package echostub

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/catalog"
	"github.com/trezcool/kozi/core/course"
)

func (s *server) registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users")
	ug.POST("/login", s.login)
	ug.POST("/logout", s.logout, jwt)
}

func (s *server) registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	// un-authed endpoints
	g.GET("/courses", s.query)
	g.PUT("/uploads/:id", s.receiveUpload) // signed-URL stand-in

	// authed endpoints
	g.GET("/courses/:id", s.retrieve, jwt)
	g.POST("/courses/:id/enroll", s.enroll, jwt)
	g.GET("/profile", s.profile, jwt)
	g.POST("/profile/promotion", s.requestPromotion, jwt)

	// authoring endpoints
	tutor := tutorMiddleware()
	g.PUT("/courses/:id", s.update, jwt, tutor)
	g.POST("/courses/:id/publish", s.publish, jwt, tutor)
	g.DELETE("/courses/:id", s.destroy, jwt, tutor)
	g.POST("/courses/:id/sections/:sid/chapters/:chid/video", s.initUpload, jwt, tutor)
	g.POST("/courses/:id/sections/:sid/chapters/:chid/video/confirm", s.confirmUpload, jwt, tutor)

	if s.opts.Conf.Debug {
		// transcoding pipeline stand-in
		g.POST("/dev/videos/advance", s.advanceVideo, jwt, tutor)
	}
}

// Handlers

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := s.authenticate(data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := s.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (s *server) logout(ctx echo.Context) error {
	// tokens are stateless; nothing to revoke in the stub
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) query(ctx echo.Context) error {
	filter := new(catalog.Filter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Summary{})
	}

	summaries, err := s.opts.Store.QueryCourses(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if summaries == nil {
		summaries = []catalog.Summary{}
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (s *server) retrieve(ctx echo.Context) error {
	crs, err := s.opts.Store.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) update(ctx echo.Context) error {
	var data course.UpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRequest")
	}
	if err := validateUpdate(&data); err != nil {
		return err
	}

	crs, err := s.opts.Store.UpdateCourse(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) publish(ctx echo.Context) error {
	crs, err := s.opts.Store.PublishCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (s *server) destroy(ctx echo.Context) error {
	if err := s.opts.Store.DeleteCourse(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsStudent {
		return errHttpForbidden
	}
	if err := s.opts.Store.Enroll(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) profile(ctx echo.Context) error {
	prof, err := s.opts.Store.GetProfile(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		prof.Identity = claims.Subject
		prof.Roles = claims.Roles
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (s *server) requestPromotion(ctx echo.Context) error {
	if err := s.opts.Store.RequestPromotion(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *server) initUpload(ctx echo.Context) error {
	var data InitUploadRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InitUploadRequest")
	}
	if data.SizeBytes <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "size_bytes", Error: "must be greater than 0"})
	}

	intent, err := s.opts.Store.InitUpload(
		ctx.Request().Context(),
		ctx.Param("id"), ctx.Param("sid"), ctx.Param("chid"),
		data.SizeBytes,
	)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, intent)
}

func (s *server) confirmUpload(ctx echo.Context) error {
	vid, err := s.opts.Store.ConfirmUpload(
		ctx.Request().Context(),
		ctx.Param("id"), ctx.Param("sid"), ctx.Param("chid"),
	)
	if err != nil {
		return err
	}

	// fake transcoding pipeline
	if d := s.opts.TranscodeDelay; d > 0 {
		courseID := ctx.Param("id")
		time.AfterFunc(d, func() {
			s.opts.Store.AdvanceVideo(courseID, vid.ID, course.VideoReady)
		})
	}
	return ctx.JSON(http.StatusOK, vid)
}

func (s *server) receiveUpload(ctx echo.Context) error {
	data, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading upload body")
	}
	if len(data) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "must not be empty"})
	}

	s.upMu.Lock()
	s.uploads[ctx.Param("id")] = data
	s.upMu.Unlock()
	return ctx.NoContent(http.StatusOK)
}

func (s *server) advanceVideo(ctx echo.Context) error {
	var data AdvanceVideoRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AdvanceVideoRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if !s.opts.Store.AdvanceVideo(data.CourseID, data.VideoID, data.Status) {
		return errHttpNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}

// validateUpdate cleans and checks the provided metadata fields; the
// store handles structural semantics itself.
func validateUpdate(data *course.UpdateRequest) error {
	if data.Title != nil {
		title := core.CleanString(*data.Title)
		*data.Title = title
		if title == "" || len([]rune(title)) > 200 {
			return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "must be 1 to 200 characters long"})
		}
	}
	return nil
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	InitUploadRequest struct {
		SizeBytes int64 `json:"size_bytes"`
	}

	AdvanceVideoRequest struct {
		CourseID string             `json:"course_id" validate:"required"`
		VideoID  string             `json:"video_id" validate:"required"`
		Status   course.VideoStatus `json:"status" validate:"required"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return core.Validate.Struct(lr)
}

func (ar *AdvanceVideoRequest) Validate() error {
	return core.Validate.Struct(ar)
}
