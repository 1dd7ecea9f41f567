package course

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kozi/core"
)

// CourseStatus is the server-authoritative lifecycle state of a course.
// The client never assigns it directly; it only reflects what the last
// save/publish response said.
type CourseStatus string

const (
	StatusDraft             CourseStatus = "DRAFT"
	StatusWaitingValidation CourseStatus = "WAITING_VALIDATION"
	StatusValidated         CourseStatus = "VALIDATED"
	StatusRejected          CourseStatus = "REJECTED"
	StatusPublished         CourseStatus = "PUBLISHED"
)

// VideoStatus is the transcoding provider's view of a chapter video.
type VideoStatus string

const (
	VideoPending    VideoStatus = "PENDING"
	VideoProcessing VideoStatus = "PROCESSING"
	VideoReady      VideoStatus = "READY"
	VideoFailed     VideoStatus = "FAILED"
	VideoExpired    VideoStatus = "EXPIRED"
	VideoUploaded   VideoStatus = "UPLOADED"
	VideoInReview   VideoStatus = "IN_REVIEW"
	VideoPublished  VideoStatus = "PUBLISHED"
	VideoRejected   VideoStatus = "REJECTED"
)

type Course struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      CourseStatus `json:"status"`
	Price       *int         `json:"price"` // cents; nil = no price set
	Sections    []Section    `json:"sections"`
	CreatedAt   time.Time    `json:"created_at"` // UTC, display only
	UpdatedAt   time.Time    `json:"updated_at"` // UTC, display only
}

// Section positions are 1-based and contiguous within the course; they
// always reflect array order and are only changed by reorder actions.
type Section struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Chapters []Chapter `json:"chapters"`
}

type Chapter struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Video    *Video `json:"video,omitempty"` // 0 or 1, never shared
}

type Video struct {
	ID           string      `json:"id"`
	Status       VideoStatus `json:"status"`
	SourceURI    string      `json:"source_uri"` // canonical provider ref, e.g. vimeo://<id>
	EmbedHash    string      `json:"embed_hash,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// client-local keys identify sections/chapters created in the UI and
// not yet confirmed by the server. They are never sent as an `id` on
// the wire; the server treats the entry as a creation instead.
const clientKeyPrefix = "client:"

func NewClientKey() string {
	return clientKeyPrefix + uuid.New().String()
}

func IsClientKey(id string) bool {
	return strings.HasPrefix(id, clientKeyPrefix)
}

// Clone returns a deep copy of the course.
func (c Course) Clone() Course {
	out := c
	if c.Price != nil {
		price := *c.Price
		out.Price = &price
	}
	out.Sections = cloneSections(c.Sections)
	return out
}

func cloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, sec := range sections {
		out[i] = sec
		out[i].Chapters = make([]Chapter, len(sec.Chapters))
		for j, ch := range sec.Chapters {
			out[i].Chapters[j] = ch
			if ch.Video != nil {
				vid := *ch.Video
				out[i].Chapters[j].Video = &vid
			}
		}
	}
	return out
}

// MetaInput carries an edit of the course meta fields (everything but
// the section/chapter tree).
type MetaInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=3000"`
	Price       *int   `json:"price" validate:"omitempty,pricecents"`
}

func (mi *MetaInput) Validate() error {
	mi.Title = core.CleanString(mi.Title)
	mi.Description = core.CleanString(mi.Description)
	return core.Validate.Struct(mi)
}
