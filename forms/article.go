package forms

import (
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cppla/newspaper/models"
)

const TitleMaxLength = 255

// CommentForm exposes only the comment body; article and author come from the request context.
type CommentForm struct {
	Body string `form:"body" json:"body"`
}

func (f *CommentForm) Validate() Errors {
	f.Body = strings.TrimSpace(f.Body)
	return fromValidation(validation.ValidateStruct(f,
		validation.Field(&f.Body,
			validation.Required.Error(msgRequired),
			validation.By(func(interface{}) error {
				if n := utf8.RuneCountInString(f.Body); n > models.CommentMaxLength {
					return validation.NewError("validation_comment_too_long",
						fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", models.CommentMaxLength, n))
				}
				return nil
			}),
		),
	))
}

// ArticleForm creates an article; the author is the current user.
type ArticleForm struct {
	Title string `form:"title" json:"title"`
	Body  string `form:"body" json:"body"`
}

func (f *ArticleForm) Validate() Errors {
	f.Title = strings.TrimSpace(f.Title)
	f.Body = strings.TrimSpace(f.Body)
	return fromValidation(validation.ValidateStruct(f,
		validation.Field(&f.Title,
			validation.Required.Error(msgRequired),
			validation.RuneLength(0, TitleMaxLength).Error("Ensure this value has at most 255 characters."),
		),
		validation.Field(&f.Body, validation.Required.Error(msgRequired)),
	))
}
