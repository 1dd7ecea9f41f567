package dummygw

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/catalog"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/upload"
)

// Gateway is an in-memory stand-in for the remote course service. It
// applies the same update semantics the real backend does (PATCH-like
// field handling, id assignment for client-created entries, position
// renumbering) so session tests exercise realistic reconciliation.
//
// Every remote call is recorded in Calls; tests assert on "zero network
// calls" with it.
type Gateway struct {
	mu         sync.RWMutex
	courses    map[string]*course.Course
	profile    catalog.Profile
	calls      []string
	lastUpdate *course.UpdateRequest
	failNext   error
	uploadBase string
}

// interface compliance checks
var (
	_ course.Gateway  = (*Gateway)(nil)
	_ catalog.Gateway = (*Gateway)(nil)
	_ upload.Gateway  = (*Gateway)(nil)
)

func Open() *Gateway {
	return &Gateway{
		courses:    make(map[string]*course.Course),
		profile:    catalog.Profile{Roles: []string{"student:"}},
		uploadBase: "memory://uploads",
	}
}

// SetUploadBaseURL overrides the base of the upload URLs handed out by
// InitUpload; the stub server points it at its own upload endpoint.
func (gw *Gateway) SetUploadBaseURL(base string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.uploadBase = strings.TrimRight(base, "/")
}

// SeedCourse loads a course fixture, overwriting any previous one with
// the same id.
func (gw *Gateway) SeedCourse(crs course.Course) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	c := crs.Clone()
	gw.courses[c.ID] = &c
}

// SeedProfile replaces the profile fixture.
func (gw *Gateway) SeedProfile(prof catalog.Profile) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.profile = prof
}

// FailNext makes the next remote call fail with err.
func (gw *Gateway) FailNext(err error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.failNext = err
}

// Calls returns the recorded remote calls, in order.
func (gw *Gateway) Calls() []string {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return append([]string(nil), gw.calls...)
}

// ResetCalls clears the recorded calls.
func (gw *Gateway) ResetCalls() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.calls = nil
}

// LastUpdate returns the body of the most recent UpdateCourse call.
func (gw *Gateway) LastUpdate() *course.UpdateRequest {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.lastUpdate
}

// AdvanceVideo moves a video to the given status, simulating the
// transcoding pipeline.
func (gw *Gateway) AdvanceVideo(courseID, videoID string, status course.VideoStatus) bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	crs, ok := gw.courses[courseID]
	if !ok {
		return false
	}
	for si := range crs.Sections {
		for ci := range crs.Sections[si].Chapters {
			if vid := crs.Sections[si].Chapters[ci].Video; vid != nil && vid.ID == videoID {
				vid.Status = status
				return true
			}
		}
	}
	return false
}

// Course API

func (gw *Gateway) GetCourse(_ context.Context, id string) (course.Course, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("GetCourse"); err != nil {
		return course.Course{}, err
	}
	crs, ok := gw.courses[id]
	if !ok {
		return course.Course{}, core.NewAPIError(http.StatusNotFound)
	}
	return crs.Clone(), nil
}

func (gw *Gateway) UpdateCourse(_ context.Context, id string, req course.UpdateRequest) (course.Course, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("UpdateCourse"); err != nil {
		return course.Course{}, err
	}
	gw.lastUpdate = &req
	crs, ok := gw.courses[id]
	if !ok {
		return course.Course{}, core.NewAPIError(http.StatusNotFound)
	}
	if course.IsStructureLocked(crs) {
		return course.Course{}, core.NewAPIError(http.StatusBadRequest)
	}

	if req.Title != nil {
		crs.Title = *req.Title
	}
	if req.Description != nil {
		crs.Description = req.Description.String // invalid ⇒ cleared
	}
	if req.Price != nil {
		if req.Price.Valid {
			price := req.Price.Int
			crs.Price = &price
		} else {
			crs.Price = nil
		}
	}
	if req.Sections != nil {
		crs.Sections = gw.applySections(crs, *req.Sections)
	}
	crs.UpdatedAt = time.Now().UTC()
	return crs.Clone(), nil
}

// applySections rebuilds the structure from the request, assigning
// server ids to entries that came without one and carrying videos over
// by chapter id.
func (gw *Gateway) applySections(crs *course.Course, updates []course.SectionUpdate) []course.Section {
	videos := make(map[string]*course.Video)
	for si := range crs.Sections {
		for ci := range crs.Sections[si].Chapters {
			if vid := crs.Sections[si].Chapters[ci].Video; vid != nil {
				videos[crs.Sections[si].Chapters[ci].ID] = vid
			}
		}
	}

	sections := make([]course.Section, 0, len(updates))
	for _, su := range updates {
		sec := course.Section{ID: su.ID, Title: su.Title}
		if sec.ID == "" {
			sec.ID = uuid.New().String()
		}
		sec.Chapters = make([]course.Chapter, 0, len(su.Chapters))
		for _, cu := range su.Chapters {
			ch := course.Chapter{ID: cu.ID, Title: cu.Title}
			if ch.ID == "" {
				ch.ID = uuid.New().String()
			} else if vid, ok := videos[ch.ID]; ok {
				v := *vid
				ch.Video = &v
			}
			sec.Chapters = append(sec.Chapters, ch)
		}
		sections = append(sections, sec)
	}
	return course.RenumberSections(sections)
}

func (gw *Gateway) PublishCourse(_ context.Context, id string) (course.Course, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("PublishCourse"); err != nil {
		return course.Course{}, err
	}
	crs, ok := gw.courses[id]
	if !ok {
		return course.Course{}, core.NewAPIError(http.StatusNotFound)
	}
	if crs.Status == course.StatusWaitingValidation || crs.Status == course.StatusPublished {
		return course.Course{}, core.NewAPIError(http.StatusBadRequest)
	}
	if gate := course.ComputePublishGate(crs); !gate.CanPublish {
		return course.Course{}, core.NewAPIError(http.StatusBadRequest)
	}
	crs.Status = course.StatusWaitingValidation
	crs.UpdatedAt = time.Now().UTC()
	return crs.Clone(), nil
}

func (gw *Gateway) DeleteCourse(_ context.Context, id string) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("DeleteCourse"); err != nil {
		return err
	}
	crs, ok := gw.courses[id]
	if !ok {
		return core.NewAPIError(http.StatusNotFound)
	}
	if crs.Status != course.StatusDraft || course.IsStructureLocked(crs) {
		return core.NewAPIError(http.StatusBadRequest)
	}
	delete(gw.courses, id)
	return nil
}

// Catalog API

func (gw *Gateway) QueryCourses(_ context.Context, filter catalog.Filter) ([]catalog.Summary, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("QueryCourses"); err != nil {
		return nil, err
	}
	search := strings.ToLower(filter.Search)
	summaries := make([]catalog.Summary, 0, len(gw.courses))
	for _, crs := range gw.courses {
		if crs.Status != course.StatusPublished {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			continue
		}
		summaries = append(summaries, catalog.Summary{
			ID:           crs.ID,
			Title:        crs.Title,
			Description:  crs.Description,
			Status:       crs.Status,
			Price:        crs.Price,
			ChapterCount: course.ComputePublishGate(crs).TotalChapters,
		})
	}
	return summaries, nil
}

func (gw *Gateway) Enroll(_ context.Context, courseID string) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("Enroll"); err != nil {
		return err
	}
	crs, ok := gw.courses[courseID]
	if !ok {
		return core.NewAPIError(http.StatusNotFound)
	}
	if crs.Status != course.StatusPublished {
		return core.NewAPIError(http.StatusBadRequest)
	}
	for _, id := range gw.profile.EnrolledCourseIDs {
		if id == courseID {
			return nil
		}
	}
	gw.profile.EnrolledCourseIDs = append(gw.profile.EnrolledCourseIDs, courseID)
	return nil
}

func (gw *Gateway) RequestPromotion(_ context.Context) error {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("RequestPromotion"); err != nil {
		return err
	}
	gw.profile.TutorPromotionRequested = true
	return nil
}

func (gw *Gateway) GetProfile(_ context.Context) (catalog.Profile, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("GetProfile"); err != nil {
		return catalog.Profile{}, err
	}
	prof := gw.profile
	prof.Roles = append([]string(nil), gw.profile.Roles...)
	prof.EnrolledCourseIDs = append([]string(nil), gw.profile.EnrolledCourseIDs...)
	return prof, nil
}

// Video upload API

func (gw *Gateway) InitUpload(_ context.Context, courseID, sectionID, chapterID string, sizeBytes int64) (upload.Intent, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("InitUpload"); err != nil {
		return upload.Intent{}, err
	}
	ch := gw.findChapter(courseID, sectionID, chapterID)
	if ch == nil {
		return upload.Intent{}, core.NewAPIError(http.StatusNotFound)
	}
	vid := &course.Video{
		ID:        uuid.New().String(),
		Status:    course.VideoPending,
		SourceURI: "vimeo://" + uuid.New().String(),
	}
	ch.Video = vid
	return upload.Intent{
		UploadURL: gw.uploadBase + "/" + vid.ID,
		VideoID:   vid.ID,
		Status:    vid.Status,
	}, nil
}

func (gw *Gateway) ConfirmUpload(_ context.Context, courseID, sectionID, chapterID string) (course.Video, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if err := gw.called("ConfirmUpload"); err != nil {
		return course.Video{}, err
	}
	ch := gw.findChapter(courseID, sectionID, chapterID)
	if ch == nil || ch.Video == nil {
		return course.Video{}, core.NewAPIError(http.StatusNotFound)
	}
	ch.Video.Status = course.VideoProcessing
	return *ch.Video, nil
}

func (gw *Gateway) findChapter(courseID, sectionID, chapterID string) *course.Chapter {
	crs, ok := gw.courses[courseID]
	if !ok {
		return nil
	}
	for si := range crs.Sections {
		if crs.Sections[si].ID != sectionID {
			continue
		}
		for ci := range crs.Sections[si].Chapters {
			if crs.Sections[si].Chapters[ci].ID == chapterID {
				return &crs.Sections[si].Chapters[ci]
			}
		}
	}
	return nil
}

// called records the call and pops the scripted failure, if any.
// Callers hold the write lock.
func (gw *Gateway) called(name string) error {
	gw.calls = append(gw.calls, name)
	if err := gw.failNext; err != nil {
		gw.failNext = nil
		return err
	}
	return nil
}
