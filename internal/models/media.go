package models

import "time"

type Category string

const (
	AdminStory Category = "admin_story"
	UserStory  Category = "user_story"
	UserReel   Category = "user_reel"
	AllReels   Category = "all_reels"
)

// StoryKey is the value the external log store expects in ?story=.
func (c Category) StoryKey() string {
	switch c {
	case AdminStory:
		return "admin"
	case UserStory:
		return "user"
	case UserReel:
		return "reels"
	}
	return ""
}

// Folder is the remote folder uploads of this category land in.
func (c Category) Folder() string {
	if c == UserReel {
		return "user_reels"
	}
	return "stories"
}

type EventKind string

const (
	EventPasswordAttempt  EventKind = "password_attempt"
	EventAdminStoryUpload EventKind = "admin_story_upload"
	EventUserStoryUpload  EventKind = "user_story_upload"
	EventUserReelsUpload  EventKind = "user_reels_upload"
)

// UploadEvent returns the event kind recorded for an upload of the category.
func (c Category) UploadEvent() EventKind {
	switch c {
	case AdminStory:
		return EventAdminStoryUpload
	case UserReel:
		return EventUserReelsUpload
	}
	return EventUserStoryUpload
}

const TimestampLayout = "2006-01-02 15:04:05"

// RecordFields holds the optional payload of a MediaRecord.
type RecordFields struct {
	Password string
	Chat     string
	StoryURL string
	ReelsURL string
}

// MediaRecord is one append-only entry of the external log.
type MediaRecord struct {
	Timestamp string    `json:"timestamp"`
	IP        string    `json:"ip"`
	Event     EventKind `json:"event"`
	Password  string    `json:"password"`
	Chat      string    `json:"chat"`
	StoryURL  string    `json:"story_url"`
	ReelsURL  string    `json:"reels_url"`

	RecordedAt time.Time `json:"-"`
}

// URL returns the media URL carried by the record, if any.
func (r MediaRecord) URL() string {
	if r.ReelsURL != "" {
		return r.ReelsURL
	}
	return r.StoryURL
}

// Category derives the category an upload record belongs to ("" for non-uploads).
func (r MediaRecord) Category() Category {
	switch r.Event {
	case EventAdminStoryUpload:
		return AdminStory
	case EventUserStoryUpload:
		return UserStory
	case EventUserReelsUpload:
		return UserReel
	}
	return ""
}

type StagedFile struct {
	Name string // generated unique name
	Path string // absolute path under the stage dir
	Ext  string // lowercase, without dot
}

// Snapshot is the state of the latest-record projection.
type Snapshot struct {
	Latest map[Category]string
	Reels  []string
}
