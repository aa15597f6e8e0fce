package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"virtualboard/internal/apperr"
	"virtualboard/internal/blob"
	"virtualboard/internal/lecture"
	"virtualboard/internal/recording"
)

func (s *Server) addLecture(c *gin.Context) {
	var req lectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	l, err := s.deps.Lectures.Create(c.Request.Context(), identity(c), lecture.Input{
		Number:      req.Number,
		Topic:       req.Topic,
		Timeslot:    req.Timeslot,
		ClassroomID: req.ClassroomID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) deleteLecture(c *gin.Context) {
	l, err := s.deps.Lectures.Delete(c.Request.Context(), identity(c), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) listLectures(c *gin.Context) {
	out, err := s.deps.Lectures.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) lecturesByClassroom(c *gin.Context) {
	out, err := s.deps.Lectures.ListByClassroom(c.Request.Context(), param(c, "classroomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getLecture(c *gin.Context) {
	l, err := s.deps.Lectures.Get(c.Request.Context(), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) addMaterial(c *gin.Context) {
	u, done, err := requiredFile(c, "material")
	if err != nil {
		fail(c, err)
		return
	}
	defer done()
	l, err := s.deps.Lectures.AddMaterial(c.Request.Context(), identity(c), param(c, "lectureId"), u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) listMaterial(c *gin.Context) {
	out, err := s.deps.Lectures.Material(c.Request.Context(), param(c, "lectureId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"material": out})
}

func (s *Server) deleteMaterial(c *gin.Context) {
	index, err := strconv.Atoi(param(c, "materialIndex"))
	if err != nil {
		fail(c, apperr.InvalidField("materialIndex", "material index must be a number"))
		return
	}
	remaining, err := s.deps.Lectures.DeleteMaterial(c.Request.Context(), identity(c), param(c, "lectureId"), index)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Material deleted successfully", "material": remaining})
}

func (s *Server) setCanvas(c *gin.Context) {
	u, done, err := requiredFile(c, "canvas")
	if err != nil {
		fail(c, err)
		return
	}
	defer done()
	l, err := s.deps.Lectures.SetCanvas(c.Request.Context(), identity(c), param(c, "id"), u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) addRecording(c *gin.Context) {
	var req recordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	rec, err := s.deps.Recordings.Create(c.Request.Context(), identity(c), recording.Input{
		Title:     req.Title,
		ScreenURL: req.ScreenURL,
		WebcamURL: req.WebcamURL,
		URL:       req.URL,
		Duration:  req.Duration,
		Type:      req.Type,
		LectureID: req.LectureID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// uploadRecording accepts screen and webcam tracks, or a single legacy video file.
func (s *Server) uploadRecording(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, bindErr(err))
		return
	}
	in := recording.UploadInput{
		Title:     form.Title,
		Duration:  form.Duration,
		Type:      form.Type,
		LectureID: form.LectureID,
	}
	for field, dst := range map[string]**blob.Upload{"screen": &in.Screen, "webcam": &in.Webcam, "video": &in.Video} {
		u, f, err := formFile(c, field)
		if err != nil {
			fail(c, err)
			return
		}
		if f != nil {
			defer f.Close()
		}
		*dst = u
	}
	rec, err := s.deps.Recordings.Upload(c.Request.Context(), identity(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteRecording(c *gin.Context) {
	rec, err := s.deps.Recordings.Delete(c.Request.Context(), identity(c), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) listRecordings(c *gin.Context) {
	out, err := s.deps.Recordings.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) recordingsByLecture(c *gin.Context) {
	out, err := s.deps.Recordings.ListByLecture(c.Request.Context(), param(c, "lectureId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
