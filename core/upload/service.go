package upload

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
)

var ErrEmptyFile = errors.New("upload must not be empty")

type (
	// Intent is the server's reply to an upload initialization.
	Intent struct {
		UploadURL string             `json:"upload_url"`
		VideoID   string             `json:"video_id"`
		Status    course.VideoStatus `json:"status"`
	}

	// Gateway is the video service's contract for the init and confirm
	// steps.
	Gateway interface {
		InitUpload(ctx context.Context, courseID, sectionID, chapterID string, sizeBytes int64) (Intent, error)
		ConfirmUpload(ctx context.Context, courseID, sectionID, chapterID string) (course.Video, error)
	}

	// ProgressFunc reports transport progress; sentBytes grows
	// monotonically up to totalBytes.
	ProgressFunc func(sentBytes, totalBytes int64)

	// Transport moves the file bytes to the storage provider. The
	// resumable protocol itself lives behind this interface.
	Transport interface {
		Upload(ctx context.Context, uploadURL string, src io.Reader, sizeBytes int64, progress ProgressFunc) error
	}

	Service struct {
		gw  Gateway
		tr  Transport
		log core.Logger
	}
)

func NewService(gw Gateway, tr Transport, log core.Logger) *Service {
	return &Service{gw: gw, tr: tr, log: log}
}

// Upload runs the three-step protocol: init, transport, confirm.
// Steps are strictly sequential; a failed step is not rolled back. The
// server is the source of truth and a retry re-runs init if needed.
// The returned video is the confirmed one (typically PROCESSING).
func (svc *Service) Upload(
	ctx context.Context,
	courseID, sectionID, chapterID string,
	src io.Reader,
	sizeBytes int64,
	progress ProgressFunc,
) (course.Video, error) {
	if sizeBytes <= 0 {
		return course.Video{}, core.NewValidationError(ErrEmptyFile, core.FieldError{Field: "file", Error: ErrEmptyFile.Error()})
	}

	intent, err := svc.gw.InitUpload(ctx, courseID, sectionID, chapterID, sizeBytes)
	if err != nil {
		return course.Video{}, errors.Wrap(err, "initializing upload")
	}

	if err := svc.tr.Upload(ctx, intent.UploadURL, src, sizeBytes, progress); err != nil {
		return course.Video{}, errors.Wrap(err, "uploading video")
	}

	vid, err := svc.gw.ConfirmUpload(ctx, courseID, sectionID, chapterID)
	if err != nil {
		return course.Video{}, errors.Wrap(err, "confirming upload")
	}
	return vid, nil
}
