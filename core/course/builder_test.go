package course_test

import (
	"context"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kozi/core"
	"github.com/trezcool/kozi/core/course"
	dummygw "github.com/trezcool/kozi/services/gateway/dummy"
	notifysvc "github.com/trezcool/kozi/services/notifier"
	testutil "github.com/trezcool/kozi/tests"
)

func testLogger() core.Logger {
	return logDiscard{}
}

type logDiscard struct{}

func (logDiscard) Debug(string, ...interface{}) {}
func (logDiscard) Info(string, ...interface{})  {}
func (logDiscard) Warn(string, ...interface{})  {}
func (logDiscard) Error(string, ...interface{}) {}
func (logDiscard) Fatal(string, ...interface{}) {}

func newTestBuilder(t *testing.T, gw course.Gateway, courseID string, confirm course.ConfirmFunc) (*course.Builder, *notifysvc.Mock) {
	t.Helper()
	notify := notifysvc.NewMock()
	b := course.NewBuilder(courseID, gw, testLogger(), notify, course.Options{
		Confirm:      confirm,
		PollInterval: 5 * time.Millisecond,
	})
	t.Cleanup(b.Close)
	return b, notify
}

func loadBuilder(t *testing.T, gw *dummygw.Gateway, crs course.Course, confirm course.ConfirmFunc) (*course.Builder, *notifysvc.Mock) {
	t.Helper()
	gw.SeedCourse(crs)
	b, notify := newTestBuilder(t, gw, crs.ID, confirm)
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	gw.ResetCalls()
	return b, notify
}

func Test_Builder_Refresh(t *testing.T) {
	gw := dummygw.Open()
	seeded := testutil.DraftCourse("crs-1", testutil.SectionWithChapters("sec-1", "Greetings", "Habari!"))
	gw.SeedCourse(seeded)

	b, _ := newTestBuilder(t, gw, "crs-1", nil)
	if b.Course() != nil {
		t.Fatal("Course() before Refresh should be nil")
	}
	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	crs := b.Course()
	testutil.JSONDiff(t, crs, &seeded)
	if b.MetaDirty() || b.StructureDirty() {
		t.Error("fresh session reported dirty state")
	}
}

func Test_Builder_HandleSave_clean(t *testing.T) {
	gw := dummygw.Open()
	b, notify := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

	if err := b.HandleSave(context.Background()); err != nil {
		t.Fatalf("HandleSave() error = %v", err)
	}
	if calls := gw.Calls(); len(calls) != 0 {
		t.Errorf("clean save issued calls: %v", calls)
	}
	if want := []string{"No changes to save."}; !reflect.DeepEqual(notify.Infos, want) {
		t.Errorf("notifications = %v, want %v", notify.Infos, want)
	}
}

func Test_Builder_HandleSave_metaOnly(t *testing.T) {
	gw := dummygw.Open()
	b, notify := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

	price := 14900
	input := course.MetaInput{Title: "Swahili A1", Description: "Karibu!", Price: &price}
	if err := b.UpdateMeta(input); err != nil {
		t.Fatalf("UpdateMeta() error = %v", err)
	}
	if !b.MetaDirty() {
		t.Fatal("MetaDirty() = false after an edit")
	}

	if err := b.HandleSave(context.Background()); err != nil {
		t.Fatalf("HandleSave() error = %v", err)
	}

	req := gw.LastUpdate()
	if req.Title == nil || *req.Title != "Swahili A1" {
		t.Errorf("sent title = %v", req.Title)
	}
	if req.Sections != nil {
		// an untouched structure must never ride along with a meta save
		t.Errorf("sections sent on a meta-only save: %v", *req.Sections)
	}

	crs := b.Course()
	if crs.Title != "Swahili A1" || crs.Description != "Karibu!" || crs.Price == nil || *crs.Price != price {
		t.Errorf("reconciled course = %+v", crs)
	}
	if b.MetaDirty() {
		t.Error("MetaDirty() = true after a successful save")
	}
	if want := []string{"Course saved."}; !reflect.DeepEqual(notify.Infos, want) {
		t.Errorf("notifications = %v, want %v", notify.Infos, want)
	}
}

func Test_Builder_HandleSave_clearMeta(t *testing.T) {
	gw := dummygw.Open()
	price := 14900
	crs := testutil.DraftCourse("crs-1")
	crs.Description = "Karibu!"
	crs.Price = &price
	b, _ := loadBuilder(t, gw, crs, nil)

	if err := b.UpdateMeta(course.MetaInput{Title: crs.Title}); err != nil {
		t.Fatalf("UpdateMeta() error = %v", err)
	}
	if err := b.HandleSave(context.Background()); err != nil {
		t.Fatalf("HandleSave() error = %v", err)
	}

	req := gw.LastUpdate()
	if req.Description == nil || req.Description.Valid {
		t.Errorf("sent description = %v, want explicit null", req.Description)
	}
	if req.Price == nil || req.Price.Valid {
		t.Errorf("sent price = %v, want explicit null", req.Price)
	}

	got := b.Course()
	if got.Description != "" || got.Price != nil {
		t.Errorf("cleared fields survived: %+v", got)
	}
}

func Test_Builder_HandleSave_structure(t *testing.T) {
	gw := dummygw.Open()
	b, _ := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

	secID, err := b.AddSection("Greetings")
	if err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if !course.IsClientKey(secID) {
		t.Fatalf("AddSection() id = %q, want a client key", secID)
	}
	if _, err = b.AddChapter(secID, "Habari!"); err != nil {
		t.Fatalf("AddChapter() error = %v", err)
	}
	if !b.StructureDirty() {
		t.Fatal("StructureDirty() = false after edits")
	}

	if err = b.HandleSave(context.Background()); err != nil {
		t.Fatalf("HandleSave() error = %v", err)
	}

	req := gw.LastUpdate()
	if req.Title != nil {
		t.Errorf("meta sent on a structure-only save: %v", *req.Title)
	}
	if req.Sections == nil {
		t.Fatal("no sections sent")
	}
	if got := (*req.Sections)[0]; got.ID != "" {
		t.Errorf("client key leaked to the wire: %q", got.ID)
	}

	// the server assigned real ids and the session adopted them
	crs := b.Course()
	if course.IsClientKey(crs.Sections[0].ID) || course.IsClientKey(crs.Sections[0].Chapters[0].ID) {
		t.Errorf("client keys survived reconciliation: %+v", crs.Sections)
	}
	if crs.Sections[0].Position != 1 || crs.Sections[0].Chapters[0].Position != 1 {
		t.Errorf("positions not renumbered: %+v", crs.Sections)
	}
	if b.StructureDirty() {
		t.Error("StructureDirty() = true after a successful save")
	}
}

func Test_Builder_HandleSave_emptyingNeedsConfirmation(t *testing.T) {
	seeded := testutil.DraftCourse("crs-1", testutil.SectionWithChapters("sec-1", "Greetings", "Habari!"))

	t.Run("declined", func(t *testing.T) {
		gw := dummygw.Open()
		b, _ := loadBuilder(t, gw, seeded, func(string) bool { return false })

		if err := b.RemoveSection("sec-1"); err != nil {
			t.Fatalf("RemoveSection() error = %v", err)
		}
		if err := b.HandleSave(context.Background()); err != nil {
			t.Fatalf("HandleSave() error = %v", err)
		}
		if calls := gw.Calls(); len(calls) != 0 {
			t.Errorf("declined save issued calls: %v", calls)
		}
		if !b.StructureDirty() {
			t.Error("declined save cleared the dirty flag")
		}
	})

	t.Run("default confirm declines", func(t *testing.T) {
		gw := dummygw.Open()
		b, _ := loadBuilder(t, gw, seeded, nil)

		if err := b.RemoveSection("sec-1"); err != nil {
			t.Fatalf("RemoveSection() error = %v", err)
		}
		if err := b.HandleSave(context.Background()); err != nil {
			t.Fatalf("HandleSave() error = %v", err)
		}
		if calls := gw.Calls(); len(calls) != 0 {
			t.Errorf("unconfirmed save issued calls: %v", calls)
		}
	})

	t.Run("no prompt when the course started empty", func(t *testing.T) {
		gw := dummygw.Open()
		confirms := 0
		b, _ := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), func(string) bool { confirms++; return false })

		secID, err := b.AddSection("Greetings")
		if err != nil {
			t.Fatalf("AddSection() error = %v", err)
		}
		if err = b.RemoveSection(secID); err != nil {
			t.Fatalf("RemoveSection() error = %v", err)
		}
		if err = b.HandleSave(context.Background()); err != nil {
			t.Fatalf("HandleSave() error = %v", err)
		}

		// only losing a previously saved structure warrants a prompt
		if confirms != 0 {
			t.Errorf("confirmations = %d, want none", confirms)
		}
		if calls := gw.Calls(); len(calls) != 1 || calls[0] != "UpdateCourse" {
			t.Errorf("calls = %v, want one UpdateCourse", calls)
		}
		req := gw.LastUpdate()
		if req.Sections == nil || len(*req.Sections) != 0 {
			t.Errorf("sent sections = %v, want empty", req.Sections)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		gw := dummygw.Open()
		var prompt string
		b, _ := loadBuilder(t, gw, seeded, func(p string) bool { prompt = p; return true })

		if err := b.RemoveSection("sec-1"); err != nil {
			t.Fatalf("RemoveSection() error = %v", err)
		}
		if err := b.HandleSave(context.Background()); err != nil {
			t.Fatalf("HandleSave() error = %v", err)
		}
		if prompt == "" {
			t.Error("no confirmation prompt shown")
		}
		req := gw.LastUpdate()
		if req.Sections == nil || len(*req.Sections) != 0 {
			t.Errorf("sent sections = %v, want empty", req.Sections)
		}
		if got := b.Course(); len(got.Sections) != 0 {
			t.Errorf("sections survived: %+v", got.Sections)
		}
	})
}

func Test_Builder_HandleSave_failureLeavesTree(t *testing.T) {
	gw := dummygw.Open()
	b, notify := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

	secID, err := b.AddSection("Greetings")
	if err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}

	gw.FailNext(core.NewAPIError(http.StatusInternalServerError))
	if err = b.HandleSave(context.Background()); err == nil {
		t.Fatal("HandleSave() error = nil, want server error")
	}

	if !b.StructureDirty() {
		t.Error("failed save cleared the dirty flag")
	}
	crs := b.Course()
	if len(crs.Sections) != 1 || crs.Sections[0].ID != secID {
		t.Errorf("working tree changed on failure: %+v", crs.Sections)
	}
	if want := []string{core.MsgServiceUnavailable}; !reflect.DeepEqual(notify.Errors, want) {
		t.Errorf("notifications = %v, want %v", notify.Errors, want)
	}

	// retry succeeds with the same state
	if err = b.HandleSave(context.Background()); err != nil {
		t.Fatalf("retry HandleSave() error = %v", err)
	}
	if b.StructureDirty() {
		t.Error("StructureDirty() = true after successful retry")
	}
}

func Test_Builder_editsWhileLocked(t *testing.T) {
	locked := testutil.DraftCourse("crs-1", testutil.SectionWithChapters("sec-1", "Greetings", "Habari!"))
	locked.Status = course.StatusWaitingValidation

	gw := dummygw.Open()
	b, notify := loadBuilder(t, gw, locked, nil)

	if !b.Locked() {
		t.Fatal("Locked() = false for a submitted course")
	}
	if _, err := b.AddSection("Numbers"); err != course.ErrLocked {
		t.Errorf("AddSection() error = %v, want ErrLocked", err)
	}
	if err := b.RemoveSection("sec-1"); err != course.ErrLocked {
		t.Errorf("RemoveSection() error = %v, want ErrLocked", err)
	}
	if err := b.MoveSection("sec-1", course.MoveDown); err != course.ErrLocked {
		t.Errorf("MoveSection() error = %v, want ErrLocked", err)
	}

	if err := b.HandleSave(context.Background()); err != course.ErrLocked {
		t.Errorf("HandleSave() error = %v, want ErrLocked", err)
	}
	if calls := gw.Calls(); len(calls) != 0 {
		t.Errorf("locked save issued calls: %v", calls)
	}
	if want := []string{"This course has already been submitted for validation."}; !reflect.DeepEqual(notify.Warnings, want) {
		t.Errorf("warnings = %v, want %v", notify.Warnings, want)
	}
}

func Test_Builder_UpdateMeta_validationNeverHitsNetwork(t *testing.T) {
	gw := dummygw.Open()
	b, _ := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

	price := -1
	err := b.UpdateMeta(course.MetaInput{Title: "ok", Price: &price})
	if _, ok := err.(validator.ValidationErrors); !ok {
		t.Fatalf("UpdateMeta() error = %v, want validation errors", err)
	}
	if calls := gw.Calls(); len(calls) != 0 {
		t.Errorf("validation failure issued calls: %v", calls)
	}
	if got := b.Course(); got.Price != nil {
		t.Errorf("invalid price applied: %+v", got)
	}
}

func Test_Builder_HandlePublish(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gw := dummygw.Open()
		b, notify := loadBuilder(t, gw, testutil.PublishableCourse("crs-1"), nil)

		if err := b.HandlePublish(context.Background()); err != nil {
			t.Fatalf("HandlePublish() error = %v", err)
		}
		if got := b.Course().Status; got != course.StatusWaitingValidation {
			t.Errorf("status = %s, want %s", got, course.StatusWaitingValidation)
		}
		if want := []string{"Course submitted for validation."}; !reflect.DeepEqual(notify.Infos, want) {
			t.Errorf("notifications = %v, want %v", notify.Infos, want)
		}
		if !b.Locked() {
			t.Error("Locked() = false after submission")
		}
	})

	t.Run("blocked locally", func(t *testing.T) {
		gw := dummygw.Open()
		b, notify := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

		if err := b.HandlePublish(context.Background()); err != course.ErrPublishBlocked {
			t.Fatalf("HandlePublish() error = %v, want ErrPublishBlocked", err)
		}
		if calls := gw.Calls(); len(calls) != 0 {
			t.Errorf("blocked publish issued calls: %v", calls)
		}
		if want := []string{"Add at least one chapter before publishing."}; !reflect.DeepEqual(notify.Warnings, want) {
			t.Errorf("warnings = %v, want %v", notify.Warnings, want)
		}
	})
}

func Test_Builder_Delete(t *testing.T) {
	t.Run("draft", func(t *testing.T) {
		gw := dummygw.Open()
		b, notify := loadBuilder(t, gw, testutil.DraftCourse("crs-1"), nil)

		if err := b.Delete(context.Background()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if want := []string{"Course deleted."}; !reflect.DeepEqual(notify.Infos, want) {
			t.Errorf("notifications = %v, want %v", notify.Infos, want)
		}
		// the session is torn down
		if _, err := b.AddSection("Greetings"); err != course.ErrSessionClosed {
			t.Errorf("AddSection() after delete error = %v, want ErrSessionClosed", err)
		}
		if _, err := gw.GetCourse(context.Background(), "crs-1"); err == nil {
			t.Error("course still exists server-side")
		}
	})

	t.Run("published is refused", func(t *testing.T) {
		published := testutil.PublishableCourse("crs-1")
		published.Status = course.StatusPublished

		gw := dummygw.Open()
		b, notify := loadBuilder(t, gw, published, nil)

		if err := b.Delete(context.Background()); err != course.ErrDeleteNotAllowed {
			t.Fatalf("Delete() error = %v, want ErrDeleteNotAllowed", err)
		}
		if calls := gw.Calls(); len(calls) != 0 {
			t.Errorf("refused delete issued calls: %v", calls)
		}
		if want := []string{"Only draft courses can be deleted."}; !reflect.DeepEqual(notify.Warnings, want) {
			t.Errorf("warnings = %v, want %v", notify.Warnings, want)
		}
	})
}

// gatedGateway blocks GetCourse until released, to race Close against a
// fetch in flight.
type gatedGateway struct {
	course.Gateway
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGateway) GetCourse(ctx context.Context, id string) (course.Course, error) {
	g.entered <- struct{}{}
	<-g.release
	if err := ctx.Err(); err != nil {
		return course.Course{}, err
	}
	return g.Gateway.GetCourse(ctx, id)
}

func Test_Builder_Close_cancelsFetch(t *testing.T) {
	inner := dummygw.Open()
	inner.SeedCourse(testutil.DraftCourse("crs-1"))
	gw := &gatedGateway{
		Gateway: inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	b, _ := newTestBuilder(t, gw, "crs-1", nil)

	done := make(chan error, 1)
	go func() { done <- b.Refresh(context.Background()) }()

	<-gw.entered
	b.Close()
	close(gw.release)

	if err := <-done; err == nil {
		t.Fatal("Refresh() error = nil, want canceled")
	}
	if b.Course() != nil {
		t.Error("stale response applied after Close")
	}
}

func Test_Builder_AttachVideo_startsPolling(t *testing.T) {
	gw := dummygw.Open()
	seeded := testutil.DraftCourse("crs-1", testutil.SectionWithChapters("sec-1", "Greetings", "Habari!"))
	b, _ := loadBuilder(t, gw, seeded, nil)

	// the upload is confirmed server-side first, then attached locally
	chapterID := seeded.Sections[0].Chapters[0].ID
	vid := course.Video{ID: "vid-1", Status: course.VideoProcessing}
	srvCrs := seeded.Clone()
	srvCrs.Sections[0].Chapters[0].Video = &vid
	gw.SeedCourse(srvCrs)

	if err := b.AttachVideo(chapterID, vid); err != nil {
		t.Fatalf("AttachVideo() error = %v", err)
	}
	if b.StructureDirty() {
		t.Error("AttachVideo dirtied the structure")
	}

	// the transcoding pipeline finishes; polling must pick it up
	if !gw.AdvanceVideo("crs-1", "vid-1", course.VideoReady) {
		t.Fatal("AdvanceVideo() found no video")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		crs := b.Course()
		if v := crs.Sections[0].Chapters[0].Video; v != nil && v.Status == course.VideoReady {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("polling never picked up the finished video")
}
