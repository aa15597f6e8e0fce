package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/rs/zerolog"

	"virtualboard/internal/apperr"
)

var (
	transOnce sync.Once
	trans     ut.Translator
)

// translator registers English messages on gin's validator and reports field names by their
// json or form tag.
func translator() ut.Translator {
	transOnce.Do(func() {
		uni := ut.New(en.New())
		trans, _ = uni.GetTranslator("en")
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
	})
	return trans
}

// bindErr converts a gin binding failure into an Invalid error.
func bindErr(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		t := translator()
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(t)
		}
		return &apperr.Error{Kind: apperr.Invalid, Message: "invalid request", Fields: fields, Err: err}
	}
	return apperr.Wrap(apperr.Invalid, "malformed request body", err)
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.Invalid:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders the last error attached with c.Error. Internal causes are logged, never sent.
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		kind := apperr.KindOf(err)
		status := statusOf(kind)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("request failed")
		}

		body := gin.H{"error": apperr.Public(err)}
		var e *apperr.Error
		if errors.As(err, &e) && len(e.Fields) > 0 {
			body["fields"] = e.Fields
		}
		c.JSON(status, body)
	}
}

// fail attaches err for ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
