package httpapi

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"virtualboard/internal/apperr"
	"virtualboard/internal/classroom"
)

func (s *Server) addClassroom(c *gin.Context) {
	var req classroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	room, err := s.deps.Classrooms.Create(c.Request.Context(), identity(c), classroom.Input{
		Name:     req.Name,
		Subject:  req.Subject,
		Timeslot: req.Timeslot,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) addStudents(c *gin.Context) {
	var req addStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	emails := req.emails()
	if len(emails) == 0 {
		fail(c, apperr.InvalidField("studentEmails", "provide classId and an array of student emails"))
		return
	}
	room, err := s.deps.Classrooms.AddStudents(c.Request.Context(), identity(c), req.ClassID, emails)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) deleteClassroom(c *gin.Context) {
	room, err := s.deps.Classrooms.Delete(c.Request.Context(), identity(c), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) listClassrooms(c *gin.Context) {
	out, err := s.deps.Classrooms.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) classroomsByTeacher(c *gin.Context) {
	out, err := s.deps.Classrooms.ListByTeacher(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) classroomsByStudent(c *gin.Context) {
	out, err := s.deps.Classrooms.ListByStudent(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getClassroom(c *gin.Context) {
	d, err := s.deps.Classrooms.Get(c.Request.Context(), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) exportRoster(c *gin.Context) {
	roster, err := s.deps.Classrooms.ExportRoster(c.Request.Context(), identity(c), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+url.PathEscape(roster.Filename)+`"`)
	c.Data(http.StatusOK, classroom.ContentType, roster.Data)
}

func (s *Server) importRoster(c *gin.Context) {
	u, done, err := requiredFile(c, "roster")
	if err != nil {
		fail(c, err)
		return
	}
	defer done()
	room, err := s.deps.Classrooms.ImportRoster(c.Request.Context(), identity(c), param(c, "id"), u.Body)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (s *Server) postAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	a, err := s.deps.Classrooms.PostAnnouncement(c.Request.Context(), identity(c), param(c, "classId"), classroom.AnnouncementInput{
		Title:       req.Title,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) listAnnouncements(c *gin.Context) {
	out, err := s.deps.Classrooms.Announcements(c.Request.Context(), identity(c), param(c, "classId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) updateAnnouncement(c *gin.Context) {
	var req announcementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	a, err := s.deps.Classrooms.UpdateAnnouncement(c.Request.Context(), identity(c), param(c, "classId"), param(c, "announcementId"), classroom.AnnouncementInput{
		Title:       req.Title,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAnnouncement(c *gin.Context) {
	if err := s.deps.Classrooms.DeleteAnnouncement(c.Request.Context(), identity(c), param(c, "classId"), param(c, "announcementId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Announcement deleted successfully"})
}
