package catalog

import (
	"context"
	"sync"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
)

// user-visible catalog messages
const (
	msgEnrolled           = "You are enrolled. Happy learning!"
	msgPromotionRequested = "Your tutor application was submitted."
)

type (
	// Summary is a catalog listing entry.
	Summary struct {
		ID           string              `json:"id"`
		Title        string              `json:"title"`
		Description  string              `json:"description"`
		Status       course.CourseStatus `json:"status"`
		Price        *int                `json:"price"` // cents; nil = no price set
		TutorName    string              `json:"tutor_name"`
		ChapterCount int                 `json:"chapter_count"`
	}

	// Profile is the current user's platform profile: roles plus
	// enrollment state.
	Profile struct {
		Identity                string   `json:"id"`
		Roles                   []string `json:"roles"`
		EnrolledCourseIDs       []string `json:"enrolled_course_ids"`
		TutorPromotionRequested bool     `json:"tutor_promotion_requested"`
	}

	Filter struct {
		Search string `query:"search"`
	}

	Gateway interface {
		QueryCourses(ctx context.Context, filter Filter) ([]Summary, error)
		GetCourse(ctx context.Context, id string) (course.Course, error)
		Enroll(ctx context.Context, courseID string) error
		RequestPromotion(ctx context.Context) error
		GetProfile(ctx context.Context) (Profile, error)
	}

	Service struct {
		gw     Gateway
		log    core.Logger
		notify core.Notifier

		mu      sync.Mutex
		profile *Profile
	}
)

func NewService(gw Gateway, log core.Logger, notify core.Notifier) *Service {
	return &Service{gw: gw, log: log, notify: notify}
}

// Browse lists the published catalog.
func (svc *Service) Browse(ctx context.Context, filter Filter) ([]Summary, error) {
	filter.Search = core.CleanString(filter.Search)
	summaries, err := svc.gw.QueryCourses(ctx, filter)
	if err != nil {
		svc.log.Error("browsing catalog", err)
		svc.notify.Error(core.UserMessage(err))
		return nil, err
	}
	return summaries, nil
}

// Get fetches one course's detail view.
func (svc *Service) Get(ctx context.Context, id string) (course.Course, error) {
	crs, err := svc.gw.GetCourse(ctx, id)
	if err != nil {
		svc.log.Error("getting course", err, map[string]interface{}{"course": id})
		svc.notify.Error(core.UserMessage(err))
		return course.Course{}, err
	}
	return crs, nil
}

// Enroll enrolls the current user. After a failure the profile is
// re-fetched best-effort so the UI does not keep stale enrollment
// state; a failure of that re-fetch is logged and swallowed, it never
// interrupts the primary error path.
func (svc *Service) Enroll(ctx context.Context, courseID string) error {
	if err := svc.gw.Enroll(ctx, courseID); err != nil {
		svc.log.Error("enrolling", err, map[string]interface{}{"course": courseID})
		svc.refreshProfile(ctx)
		svc.notify.Error(core.UserMessage(err))
		return err
	}
	svc.refreshProfile(ctx)
	svc.notify.Info(msgEnrolled)
	return nil
}

// RequestPromotion asks for the tutor role; same re-fetch policy as
// enrollment.
func (svc *Service) RequestPromotion(ctx context.Context) error {
	if err := svc.gw.RequestPromotion(ctx); err != nil {
		svc.log.Error("requesting promotion", err)
		svc.refreshProfile(ctx)
		svc.notify.Error(core.UserMessage(err))
		return err
	}
	svc.refreshProfile(ctx)
	svc.notify.Info(msgPromotionRequested)
	return nil
}

// Profile returns the last fetched profile, if any.
func (svc *Service) Profile() *Profile {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.profile == nil {
		return nil
	}
	prof := *svc.profile
	return &prof
}

// RefreshProfile force-fetches the profile.
func (svc *Service) RefreshProfile(ctx context.Context) (Profile, error) {
	prof, err := svc.gw.GetProfile(ctx)
	if err != nil {
		return Profile{}, err
	}
	svc.mu.Lock()
	svc.profile = &prof
	svc.mu.Unlock()
	return prof, nil
}

func (svc *Service) refreshProfile(ctx context.Context) {
	if _, err := svc.RefreshProfile(ctx); err != nil {
		svc.log.Warn("refreshing profile", err)
	}
}
