package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"virtualboard/internal/account"
	"virtualboard/internal/apperr"
	"virtualboard/internal/auth"
)

func (s *Server) addStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	st, err := s.deps.Accounts.RegisterStudent(c.Request.Context(), account.StudentSignup{Email: req.Email, Password: req.Password})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) listStudents(c *gin.Context) {
	out, err := s.deps.Accounts.Students(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addTeacher(c *gin.Context) {
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	t, err := s.deps.Accounts.RegisterTeacher(c.Request.Context(), account.TeacherSignup{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Subjects: req.Subjects,
		Classes:  req.Classes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) listTeachers(c *gin.Context) {
	out, err := s.deps.Accounts.Teachers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// authenticate checks credentials for role and answers with a signed token.
func (s *Server) authenticate(role account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, bindErr(err))
			return
		}
		who, err := s.deps.Accounts.Authenticate(c.Request.Context(), role, req.Email, req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		tok, err := auth.Issue(who, s.opts.Issuer, s.opts.SigningKey, s.opts.TokenTTL)
		if err != nil {
			fail(c, apperr.Wrap(apperr.Internal, "issue token", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": tok.Value, "expiresAt": tok.ExpiresAt.Unix()})
	}
}

func (s *Server) authorise(c *gin.Context) {
	who := identity(c)
	c.JSON(http.StatusOK, gin.H{"allowed": true, "role": who.Role, "id": who.ID})
}

func (s *Server) getTeacher(c *gin.Context) {
	t, err := s.deps.Accounts.Teacher(c.Request.Context(), param(c, "id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) updateTeacher(c *gin.Context) {
	var req teacherUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, bindErr(err))
		return
	}
	t, err := s.deps.Accounts.UpdateTeacher(c.Request.Context(), identity(c), param(c, "id"), account.TeacherUpdate{
		Name:     req.Name,
		Subjects: req.Subjects,
		Classes:  req.Classes,
		Avatar:   req.Avatar,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) uploadAvatar(c *gin.Context) {
	u, done, err := requiredFile(c, "avatar")
	if err != nil {
		fail(c, err)
		return
	}
	defer done()
	t, err := s.deps.Accounts.SetAvatar(c.Request.Context(), identity(c), param(c, "id"), u)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
