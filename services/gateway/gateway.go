package apigw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/auth"
	"github.com/trezcool/kozi/core/catalog"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/upload"
)

type (
	// TokenProvider supplies the bearer token for authenticated calls.
	TokenProvider interface {
		Token() string
	}

	// AuthExpiredHandler reacts to classified 401s (one-time warning +
	// redirect live behind it, not here).
	AuthExpiredHandler interface {
		HandleAuthExpired()
	}

	// HTTPGateway is the real API gateway: it owns transport, bearer
	// auth and error classification. Whatever the backend says about a
	// failure is dropped here; only a classified core.APIError with a
	// localized message travels further.
	HTTPGateway struct {
		base        string
		client      *http.Client
		tokens      TokenProvider
		authExpired AuthExpiredHandler
		log         core.Logger
	}
)

// interface compliance checks
var (
	_ course.Gateway      = (*HTTPGateway)(nil)
	_ catalog.Gateway     = (*HTTPGateway)(nil)
	_ upload.Gateway      = (*HTTPGateway)(nil)
	_ auth.IdentityClient = (*HTTPGateway)(nil)
)

func NewHTTPGateway(conf *core.Config, tokens TokenProvider, authExpired AuthExpiredHandler, log core.Logger) *HTTPGateway {
	return &HTTPGateway{
		base:        strings.TrimRight(conf.Client.APIBaseURL, "/"),
		client:      &http.Client{Timeout: conf.Client.RequestTimeout},
		tokens:      tokens,
		authExpired: authExpired,
		log:         log,
	}
}

// Course API

func (gw *HTTPGateway) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var crs course.Course
	err := gw.do(ctx, http.MethodGet, "/courses/"+url.PathEscape(id), nil, &crs)
	return crs, err
}

func (gw *HTTPGateway) UpdateCourse(ctx context.Context, id string, req course.UpdateRequest) (course.Course, error) {
	var crs course.Course
	err := gw.do(ctx, http.MethodPut, "/courses/"+url.PathEscape(id), req, &crs)
	return crs, err
}

func (gw *HTTPGateway) PublishCourse(ctx context.Context, id string) (course.Course, error) {
	var crs course.Course
	err := gw.do(ctx, http.MethodPost, "/courses/"+url.PathEscape(id)+"/publish", nil, &crs)
	return crs, err
}

func (gw *HTTPGateway) DeleteCourse(ctx context.Context, id string) error {
	return gw.do(ctx, http.MethodDelete, "/courses/"+url.PathEscape(id), nil, nil)
}

// Catalog API

func (gw *HTTPGateway) QueryCourses(ctx context.Context, filter catalog.Filter) ([]catalog.Summary, error) {
	path := "/courses"
	if search := core.CleanString(filter.Search); search != "" {
		params := make(url.Values, 1)
		params.Set("search", search)
		path += "?" + params.Encode()
	}
	var summaries []catalog.Summary
	err := gw.do(ctx, http.MethodGet, path, nil, &summaries)
	return summaries, err
}

func (gw *HTTPGateway) Enroll(ctx context.Context, courseID string) error {
	return gw.do(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/enroll", nil, nil)
}

func (gw *HTTPGateway) RequestPromotion(ctx context.Context) error {
	return gw.do(ctx, http.MethodPost, "/profile/promotion", nil, nil)
}

func (gw *HTTPGateway) GetProfile(ctx context.Context) (catalog.Profile, error) {
	var prof catalog.Profile
	err := gw.do(ctx, http.MethodGet, "/profile", nil, &prof)
	return prof, err
}

// Video upload API

type initUploadRequest struct {
	SizeBytes int64 `json:"size_bytes"`
}

func (gw *HTTPGateway) InitUpload(ctx context.Context, courseID, sectionID, chapterID string, sizeBytes int64) (upload.Intent, error) {
	var intent upload.Intent
	path := fmt.Sprintf(
		"/courses/%s/sections/%s/chapters/%s/video",
		url.PathEscape(courseID), url.PathEscape(sectionID), url.PathEscape(chapterID),
	)
	err := gw.do(ctx, http.MethodPost, path, initUploadRequest{SizeBytes: sizeBytes}, &intent)
	return intent, err
}

func (gw *HTTPGateway) ConfirmUpload(ctx context.Context, courseID, sectionID, chapterID string) (course.Video, error) {
	var vid course.Video
	path := fmt.Sprintf(
		"/courses/%s/sections/%s/chapters/%s/video/confirm",
		url.PathEscape(courseID), url.PathEscape(sectionID), url.PathEscape(chapterID),
	)
	err := gw.do(ctx, http.MethodPost, path, nil, &vid)
	return vid, err
}

// Identity API

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	loginResponse struct {
		Token string `json:"token"`
	}
)

func (gw *HTTPGateway) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	err := gw.do(ctx, http.MethodPost, "/users/login", loginRequest{Username: username, Password: password}, &resp)
	return resp.Token, err
}

func (gw *HTTPGateway) Logout(ctx context.Context) error {
	return gw.do(ctx, http.MethodPost, "/users/logout", nil, nil)
}

// do runs one API call: marshal, send, classify, decode.
func (gw *HTTPGateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			gw.log.Error("marshaling request body", err)
			return core.NewAPIError(0)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, gw.base+path, rdr)
	if err != nil {
		gw.log.Error("building request", err)
		return core.NewAPIError(0)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if gw.tokens != nil {
		if token := gw.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := gw.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// canceled/abandoned call: propagate as-is, never classify
			return ctx.Err()
		}
		gw.log.Error("api request failed", err, map[string]interface{}{"method": method, "path": path})
		return core.NewAPIError(0)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// drain & drop: the backend's message never leaves the gateway
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusUnauthorized && gw.authExpired != nil {
			gw.authExpired.HandleAuthExpired()
		}
		return core.NewAPIError(resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			gw.log.Error("decoding response body", err, map[string]interface{}{"method": method, "path": path})
			return core.NewAPIError(0)
		}
	}
	return nil
}
