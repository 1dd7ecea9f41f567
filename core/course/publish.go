package course

// PublishGate is the computed readiness check for submitting a course
// to validation.
type PublishGate struct {
	TotalChapters        int
	ReadyVideos          int
	MissingVideoChapters int
	NotReadyVideos       int
	CanPublish           bool
}

// ComputePublishGate walks all chapters: no video counts as missing,
// a READY video counts as ready, anything else counts as not ready.
func ComputePublishGate(c *Course) PublishGate {
	var gate PublishGate
	if c == nil {
		return gate
	}
	for si := range c.Sections {
		for ci := range c.Sections[si].Chapters {
			gate.TotalChapters++
			vid := c.Sections[si].Chapters[ci].Video
			switch {
			case vid == nil:
				gate.MissingVideoChapters++
			case vid.Status == VideoReady:
				gate.ReadyVideos++
			default:
				gate.NotReadyVideos++
			}
		}
	}
	if c.Status == StatusWaitingValidation ||
		gate.TotalChapters == 0 ||
		gate.MissingVideoChapters > 0 ||
		gate.NotReadyVideos > 0 {
		return gate
	}
	gate.CanPublish = gate.ReadyVideos == gate.TotalChapters
	return gate
}

// publish/save block messages
const (
	msgAlreadySubmitted = "This course has already been submitted for validation."
	msgAlreadyPublished = "This course is published and can no longer be edited."
	msgVideoInProgress  = "A video is still processing. Please wait for it to finish."
	msgNoChapters       = "Add at least one chapter before publishing."
	msgMissingVideos    = "Every chapter needs a video before publishing."
	msgVideosNotReady   = "Some videos are not ready yet."
	msgNotPublishable   = "All videos must be ready before publishing."
)

// BlockReason returns the user-facing reason publishing is currently
// blocked, or "" when the course may be submitted. Tooltip text is
// derived here and nowhere else.
func (gate PublishGate) BlockReason(c *Course) string {
	switch {
	case c == nil:
		return msgNotPublishable
	case c.Status == StatusWaitingValidation:
		return msgAlreadySubmitted
	case c.Status == StatusPublished:
		return msgAlreadyPublished
	case HasInProgressVideo(c):
		return msgVideoInProgress
	case gate.TotalChapters == 0:
		return msgNoChapters
	case gate.MissingVideoChapters > 0:
		return msgMissingVideos
	case gate.NotReadyVideos > 0:
		return msgVideosNotReady
	case !gate.CanPublish:
		return msgNotPublishable
	}
	return ""
}

// SaveBlockReason returns the user-facing reason saving is currently
// blocked, or "" when a save may proceed.
func SaveBlockReason(c *Course) string {
	switch {
	case c == nil:
		return msgNotLoaded
	case c.Status == StatusWaitingValidation:
		return msgAlreadySubmitted
	case c.Status == StatusPublished:
		return msgAlreadyPublished
	case HasInProgressVideo(c):
		return msgVideoInProgress
	}
	return ""
}
