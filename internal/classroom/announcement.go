package classroom

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
)

// AnnouncementInput is the editable part of an announcement.
type AnnouncementInput struct {
	Title       string
	Content     string
	Attachments []string
}

func (in AnnouncementInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(in.Content) == "" {
		fields["content"] = "content is required"
	}
	if len(fields) > 0 {
		return &apperr.Error{Kind: apperr.Invalid, Message: "title and content are required", Fields: fields}
	}
	return nil
}

func attachmentList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// PostAnnouncement appends an announcement to a classroom owned by who.
func (s *Service) PostAnnouncement(ctx context.Context, who account.Identity, classID string, in AnnouncementInput) (Announcement, error) {
	if err := in.validate(); err != nil {
		return Announcement{}, err
	}
	if _, err := s.owned(ctx, who, classID); err != nil {
		return Announcement{}, err
	}
	a := Announcement{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Attachments: attachmentList(in.Attachments),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.AppendAnnouncement(ctx, classID, a); err != nil {
		return Announcement{}, storeErr(err, "append announcement")
	}
	return a, nil
}

// Announcements lists a classroom's announcements for its teacher or an enrolled student.
func (s *Service) Announcements(ctx context.Context, who account.Identity, classID string) ([]Announcement, error) {
	c, err := s.find(ctx, classID)
	if err != nil {
		return nil, err
	}
	member := (who.IsTeacher() && c.OwnedBy(who.ID)) || (who.IsStudent() && c.HasStudent(who.ID))
	if !member {
		return nil, apperr.New(apperr.Forbidden, "not authorized to view these announcements")
	}
	return c.Announcements, nil
}

// UpdateAnnouncement replaces the editable fields of an announcement in place.
func (s *Service) UpdateAnnouncement(ctx context.Context, who account.Identity, classID, announcementID string, in AnnouncementInput) (Announcement, error) {
	if err := in.validate(); err != nil {
		return Announcement{}, err
	}
	c, err := s.owned(ctx, who, classID)
	if err != nil {
		return Announcement{}, err
	}
	var current *Announcement
	for i := range c.Announcements {
		if c.Announcements[i].ID == announcementID {
			current = &c.Announcements[i]
			break
		}
	}
	if current == nil {
		return Announcement{}, apperr.New(apperr.NotFound, "announcement not found")
	}

	updated := *current
	updated.Title = strings.TrimSpace(in.Title)
	updated.Content = in.Content
	updated.Attachments = attachmentList(in.Attachments)
	if err := s.repo.UpdateAnnouncement(ctx, classID, updated); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Announcement{}, apperr.Wrap(apperr.NotFound, "announcement not found", err)
		}
		return Announcement{}, storeErr(err, "update announcement")
	}
	return updated, nil
}

// DeleteAnnouncement removes an announcement; removing one that is already gone succeeds.
func (s *Service) DeleteAnnouncement(ctx context.Context, who account.Identity, classID, announcementID string) error {
	if _, err := s.owned(ctx, who, classID); err != nil {
		return err
	}
	if err := s.repo.RemoveAnnouncement(ctx, classID, announcementID); err != nil {
		return storeErr(err, "remove announcement")
	}
	return nil
}
