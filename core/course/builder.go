package course

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kozi/core"
)

var (
	// errors
	ErrNotLoaded        = errors.New("course not loaded")
	ErrLocked           = errors.New("course is locked for editing")
	ErrPublishBlocked   = errors.New("course cannot be published yet")
	ErrDeleteNotAllowed = errors.New("only unlocked draft courses can be deleted")
	ErrSessionClosed    = errors.New("builder session is closed")
	ErrSectionNotFound  = errors.New("section not found")
	ErrChapterNotFound  = errors.New("chapter not found")
)

// user-visible builder messages
const (
	msgNotLoaded        = "The course is still loading. Please wait."
	msgNothingToSave    = "No changes to save."
	msgSaved            = "Course saved."
	msgSubmitted        = "Course submitted for validation."
	msgDeleted          = "Course deleted."
	msgDeleteBlocked    = "Only draft courses can be deleted."
	msgConfirmDeleteAll = "This will delete every section of the course. Continue?"
)

type (
	// Gateway is the narrow course-service contract the builder needs.
	// Implementations classify failures into core.APIError; raw backend
	// messages never cross this boundary. Success responses replace the
	// session's course wholesale, they are never merged.
	Gateway interface {
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, id string, req UpdateRequest) (Course, error)
		PublishCourse(ctx context.Context, id string) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	// ConfirmFunc asks the user a yes/no question before a destructive
	// save proceeds. Returning false must leave no side effect at all.
	ConfirmFunc func(prompt string) bool

	Options struct {
		Confirm      ConfirmFunc
		PollInterval time.Duration
	}

	// metaSnapshot is the course meta as last confirmed by the server.
	// It only moves on a successful save/publish, never on a background
	// refresh, so mid-polling updates cannot erase the user's notion of
	// what changed.
	metaSnapshot struct {
		title       string
		description string
		price       *int
	}

	// Builder is the authoring session for one course: it owns the
	// in-memory tree, the dirty flags and the save/publish/delete
	// orchestration. A session is created per course id and torn down
	// with Close when the user navigates away.
	Builder struct {
		courseID string
		gw       Gateway
		log      core.Logger
		notify   core.Notifier
		confirm  ConfirmFunc
		poller   *Poller

		mu                sync.Mutex
		course            *Course
		meta              metaSnapshot
		hadSections       bool
		structureDirty    bool
		selectedChapterID string
		loaded            bool

		loading     bool
		saving      bool
		publishing  bool
		deleting    bool
		closed      bool
		cancelFetch context.CancelFunc
	}
)

func NewBuilder(courseID string, gw Gateway, log core.Logger, notify core.Notifier, opts Options) *Builder {
	b := &Builder{
		courseID: courseID,
		gw:       gw,
		log:      log,
		notify:   notify,
		confirm:  opts.Confirm,
	}
	if b.confirm == nil {
		// refuse destructive saves unless the caller wired a prompt
		b.confirm = func(string) bool { return false }
	}
	b.poller = NewPoller(b.pollCourse, b.Refresh, opts.PollInterval)
	return b
}

func (b *Builder) CourseID() string { return b.courseID }

// Course returns a deep copy of the working tree for rendering; only
// the builder itself mutates the authoritative one.
func (b *Builder) Course() *Course {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.course == nil {
		return nil
	}
	crs := b.course.Clone()
	return &crs
}

// pollCourse is the poller's current-course accessor.
func (b *Builder) pollCourse() *Course {
	return b.Course()
}

func (b *Builder) Loading() bool    { return b.flag(&b.loading) }
func (b *Builder) Saving() bool     { return b.flag(&b.saving) }
func (b *Builder) Publishing() bool { return b.flag(&b.publishing) }

func (b *Builder) flag(f *bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *f
}

// Locked reports whether the one lock predicate currently disallows
// editing and saving.
func (b *Builder) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return IsStructureLocked(b.course)
}

func (b *Builder) StructureDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.structureDirty
}

func (b *Builder) MetaDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.course != nil && b.metaDirtyLocked()
}

// Gate recomputes the publish-readiness gate for the working tree.
func (b *Builder) Gate() PublishGate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ComputePublishGate(b.course)
}

// SelectChapter records the UI focus; it is not business state.
func (b *Builder) SelectChapter(chapterID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selectedChapterID = chapterID
}

func (b *Builder) SelectedChapterID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectedChapterID
}

// Refresh fetches the course. The first successful fetch captures the
// saved-state snapshot; later ones (e.g. from polling) only update the
// tree. A fetch canceled by Close never applies its response.
func (b *Builder) Refresh(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.loading {
		b.mu.Unlock()
		return nil
	}
	b.loading = true
	fetchCtx, cancel := context.WithCancel(ctx)
	b.cancelFetch = cancel
	b.mu.Unlock()

	crs, err := b.gw.GetCourse(fetchCtx, b.courseID)
	canceled := fetchCtx.Err() != nil
	cancel()

	b.mu.Lock()
	b.loading = false
	b.cancelFetch = nil
	if err != nil {
		b.mu.Unlock()
		if !canceled {
			b.log.Error("fetching course", err, map[string]interface{}{"course": b.courseID})
		}
		return err
	}
	if b.closed || canceled {
		// a stale response must not overwrite anything
		b.mu.Unlock()
		return ErrSessionClosed
	}
	b.course = &crs
	if !b.loaded {
		b.captureSnapshotLocked(&crs)
		b.loaded = true
	}
	b.mu.Unlock()

	b.poller.Update()
	return nil
}

// UpdateMeta validates and applies a meta edit to the working tree.
// Validation-shaped failures (e.g. a negative price) never reach the
// network.
func (b *Builder) UpdateMeta(input MetaInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return err
	}
	b.course.Title = input.Title
	b.course.Description = input.Description
	if input.Price != nil {
		price := *input.Price
		b.course.Price = &price
	} else {
		b.course.Price = nil
	}
	return nil
}

// AddSection appends a section under a client-local key and returns it.
func (b *Builder) AddSection(title string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return "", err
	}
	sec := Section{ID: NewClientKey(), Title: core.CleanString(title)}
	b.course.Sections = RenumberSections(append(b.course.Sections, sec))
	b.structureDirty = true
	return sec.ID, nil
}

func (b *Builder) RenameSection(sectionID, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return err
	}
	idx := b.sectionIndexLocked(sectionID)
	if idx < 0 {
		return ErrSectionNotFound
	}
	b.course.Sections[idx].Title = core.CleanString(title)
	b.structureDirty = true
	return nil
}

func (b *Builder) RemoveSection(sectionID string) error {
	b.mu.Lock()
	if err := b.canEditLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	idx := b.sectionIndexLocked(sectionID)
	if idx < 0 {
		b.mu.Unlock()
		return ErrSectionNotFound
	}
	secs := b.course.Sections
	b.course.Sections = RenumberSections(append(secs[:idx], secs[idx+1:]...))
	b.structureDirty = true
	b.mu.Unlock()

	b.poller.Update() // an in-progress video may just have gone away
	return nil
}

// AddChapter appends a chapter to a section under a client-local key.
func (b *Builder) AddChapter(sectionID, title string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return "", err
	}
	idx := b.sectionIndexLocked(sectionID)
	if idx < 0 {
		return "", ErrSectionNotFound
	}
	ch := Chapter{ID: NewClientKey(), Title: core.CleanString(title)}
	sec := &b.course.Sections[idx]
	sec.Chapters = append(sec.Chapters, ch)
	b.course.Sections = RenumberSections(b.course.Sections)
	b.structureDirty = true
	return ch.ID, nil
}

func (b *Builder) RenameChapter(chapterID, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return err
	}
	si, ci := b.chapterIndexLocked(chapterID)
	if si < 0 {
		return ErrChapterNotFound
	}
	b.course.Sections[si].Chapters[ci].Title = core.CleanString(title)
	b.structureDirty = true
	return nil
}

func (b *Builder) RemoveChapter(chapterID string) error {
	b.mu.Lock()
	if err := b.canEditLocked(); err != nil {
		b.mu.Unlock()
		return err
	}
	si, ci := b.chapterIndexLocked(chapterID)
	if si < 0 {
		b.mu.Unlock()
		return ErrChapterNotFound
	}
	chs := b.course.Sections[si].Chapters
	b.course.Sections[si].Chapters = append(chs[:ci], chs[ci+1:]...)
	b.course.Sections = RenumberSections(b.course.Sections)
	b.structureDirty = true
	if b.selectedChapterID == chapterID {
		b.selectedChapterID = ""
	}
	b.mu.Unlock()

	b.poller.Update()
	return nil
}

// MoveSection moves a section one step up or down; boundary moves are
// no-ops and do not dirty the structure.
func (b *Builder) MoveSection(sectionID string, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return err
	}
	idx := b.sectionIndexLocked(sectionID)
	if idx < 0 {
		return ErrSectionNotFound
	}
	target := idx + int(dir)
	if target < 0 || target >= len(b.course.Sections) {
		return nil
	}
	b.course.Sections = MoveSection(b.course.Sections, idx, dir)
	b.structureDirty = true
	return nil
}

func (b *Builder) MoveChapter(chapterID string, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.canEditLocked(); err != nil {
		return err
	}
	si, ci := b.chapterIndexLocked(chapterID)
	if si < 0 {
		return ErrChapterNotFound
	}
	target := ci + int(dir)
	if target < 0 || target >= len(b.course.Sections[si].Chapters) {
		return nil
	}
	b.course.Sections = MoveChapter(b.course.Sections, si, ci, dir)
	b.structureDirty = true
	return nil
}

// AttachVideo places a freshly confirmed upload on its chapter. The
// video is already persisted server-side, so the structure is not
// dirtied; polling picks up the processing state.
func (b *Builder) AttachVideo(chapterID string, vid Video) error {
	b.mu.Lock()
	si, ci := b.chapterIndexLocked(chapterID)
	if si < 0 {
		b.mu.Unlock()
		return ErrChapterNotFound
	}
	v := vid
	b.course.Sections[si].Chapters[ci].Video = &v
	b.mu.Unlock()

	b.poller.Update()
	return nil
}

// HandleSave is the Save-button orchestration: it decides what (if
// anything) must go to the server and builds the minimal partial.
// A clean session issues zero network calls; emptying a course that had
// sections requires an explicit confirmation first, and cancelling that
// confirmation also issues zero calls.
func (b *Builder) HandleSave(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.course == nil {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if b.saving || b.publishing {
		// the Save control is disabled while a call is in flight
		b.mu.Unlock()
		return nil
	}
	if reason := SaveBlockReason(b.course); reason != "" {
		b.mu.Unlock()
		b.notify.Warn(reason)
		return ErrLocked
	}

	metaDirty := b.metaDirtyLocked()
	structureDirty := b.structureDirty
	if !metaDirty && !structureDirty {
		b.mu.Unlock()
		b.notify.Info(msgNothingToSave)
		return nil
	}

	var partial PartialCourse
	if metaDirty {
		title := b.course.Title
		partial.Title = &title
		desc := null.NewString(b.course.Description, b.course.Description != "")
		partial.Description = &desc
		var price null.Int
		if b.course.Price != nil {
			price = null.IntFrom(*b.course.Price)
		}
		partial.Price = &price
	}
	needsConfirm := false
	if structureDirty {
		secs := cloneSections(b.course.Sections)
		if secs == nil {
			secs = []Section{}
		}
		partial.Sections = &secs
		// emptying a course that actually had sections is destructive
		needsConfirm = len(secs) == 0 && b.hadSections
	}
	b.saving = true
	b.mu.Unlock()

	if needsConfirm && !b.confirm(msgConfirmDeleteAll) {
		b.mu.Lock()
		b.saving = false
		b.mu.Unlock()
		return nil
	}
	return b.save(ctx, partial)
}

// Save persists an explicitly constructed partial. Most callers want
// HandleSave; this is the lower-level entry point.
func (b *Builder) Save(ctx context.Context, partial PartialCourse) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.course == nil {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if b.saving || b.publishing {
		b.mu.Unlock()
		return nil
	}
	if reason := SaveBlockReason(b.course); reason != "" {
		b.mu.Unlock()
		b.notify.Warn(reason)
		return ErrLocked
	}
	b.saving = true
	b.mu.Unlock()

	return b.save(ctx, partial)
}

// save runs the update call and reconciles on success. A failure leaves
// the working tree exactly as it was so the user can retry.
func (b *Builder) save(ctx context.Context, partial PartialCourse) error {
	req := MapPartialToUpdateRequest(partial)
	crs, err := b.gw.UpdateCourse(ctx, b.courseID, req)

	b.mu.Lock()
	b.saving = false
	if err != nil {
		b.mu.Unlock()
		b.log.Error("saving course", err, map[string]interface{}{"course": b.courseID})
		b.notify.Error(core.UserMessage(err))
		return err
	}
	b.course = &crs
	b.captureSnapshotLocked(&crs)
	b.structureDirty = false
	b.mu.Unlock()

	b.notify.Info(msgSaved)
	b.poller.Update()
	return nil
}

// HandlePublish submits the course for validation, or explains why it
// cannot be, in a fixed precedence order. The resulting status is
// whatever the server returns.
func (b *Builder) HandlePublish(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.course == nil {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if b.saving || b.publishing {
		b.mu.Unlock()
		return nil
	}
	gate := ComputePublishGate(b.course)
	if reason := gate.BlockReason(b.course); reason != "" {
		b.mu.Unlock()
		b.notify.Warn(reason)
		return ErrPublishBlocked
	}
	b.publishing = true
	b.mu.Unlock()

	crs, err := b.gw.PublishCourse(ctx, b.courseID)

	b.mu.Lock()
	b.publishing = false
	if err != nil {
		b.mu.Unlock()
		b.log.Error("publishing course", err, map[string]interface{}{"course": b.courseID})
		b.notify.Error(core.UserMessage(err))
		return err
	}
	b.course = &crs
	b.captureSnapshotLocked(&crs)
	b.structureDirty = false
	b.mu.Unlock()

	b.notify.Info(msgSubmitted)
	b.poller.Update()
	return nil
}

// Delete removes the course. Only an unlocked draft may go; success
// tears the session down and the caller is expected to navigate away.
func (b *Builder) Delete(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrSessionClosed
	}
	if b.course == nil {
		b.mu.Unlock()
		return ErrNotLoaded
	}
	if b.saving || b.publishing || b.deleting {
		b.mu.Unlock()
		return nil
	}
	if b.course.Status != StatusDraft || IsStructureLocked(b.course) {
		b.mu.Unlock()
		b.notify.Warn(msgDeleteBlocked)
		return ErrDeleteNotAllowed
	}
	b.deleting = true
	b.mu.Unlock()

	err := b.gw.DeleteCourse(ctx, b.courseID)

	b.mu.Lock()
	b.deleting = false
	if err != nil {
		b.mu.Unlock()
		b.log.Error("deleting course", err, map[string]interface{}{"course": b.courseID})
		b.notify.Error(core.UserMessage(err))
		return err
	}
	b.closed = true
	b.course = nil
	b.mu.Unlock()

	b.poller.Stop()
	b.notify.Info(msgDeleted)
	return nil
}

// Close tears the session down: the pending fetch (if any) is canceled
// so a stale response cannot overwrite the next course's state, and the
// poller is stopped. Called when the user navigates away.
func (b *Builder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.cancelFetch != nil {
		b.cancelFetch()
	}
	b.mu.Unlock()

	b.poller.Stop()
}

func (b *Builder) canEditLocked() error {
	switch {
	case b.closed:
		return ErrSessionClosed
	case b.course == nil:
		return ErrNotLoaded
	case IsStructureLocked(b.course):
		return ErrLocked
	}
	return nil
}

func (b *Builder) captureSnapshotLocked(crs *Course) {
	b.meta = metaSnapshot{
		title:       crs.Title,
		description: crs.Description,
	}
	if crs.Price != nil {
		price := *crs.Price
		b.meta.price = &price
	}
	b.hadSections = len(crs.Sections) > 0
}

func (b *Builder) metaDirtyLocked() bool {
	if b.course.Title != b.meta.title || b.course.Description != b.meta.description {
		return true
	}
	return !eqIntPtr(b.course.Price, b.meta.price)
}

func (b *Builder) sectionIndexLocked(sectionID string) int {
	for i := range b.course.Sections {
		if b.course.Sections[i].ID == sectionID {
			return i
		}
	}
	return -1
}

func (b *Builder) chapterIndexLocked(chapterID string) (int, int) {
	for si := range b.course.Sections {
		for ci := range b.course.Sections[si].Chapters {
			if b.course.Sections[si].Chapters[ci].ID == chapterID {
				return si, ci
			}
		}
	}
	return -1, -1
}

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
