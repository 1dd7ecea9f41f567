package course

// IsVideoInProgress reports whether the transcoding provider is still
// working on a video. This is the single definition of "in progress";
// every lock and polling decision derives from it.
func IsVideoInProgress(status VideoStatus) bool {
	return status == VideoPending || status == VideoProcessing
}

// HasInProgressVideo reports whether any chapter video of the course is
// still being processed. A nil or empty course has none.
func HasInProgressVideo(c *Course) bool {
	if c == nil {
		return false
	}
	for si := range c.Sections {
		for ci := range c.Sections[si].Chapters {
			if vid := c.Sections[si].Chapters[ci].Video; vid != nil && IsVideoInProgress(vid.Status) {
				return true
			}
		}
	}
	return false
}

// IsStructureLocked is the one predicate gating every structural
// mutation and the Save/Publish actions: editing is disallowed while
// validation is pending, once published, or while a video is still
// processing. Lock logic must not be redefined anywhere else.
func IsStructureLocked(c *Course) bool {
	if c == nil {
		return false
	}
	return c.Status == StatusWaitingValidation ||
		c.Status == StatusPublished ||
		HasInProgressVideo(c)
}
