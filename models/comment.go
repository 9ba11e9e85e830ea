package models

import "time"

// CommentMaxLength bounds the body of a comment, in characters.
const CommentMaxLength = 140

// Comment is a reply attached to one article by one author. ArticleID and
// AuthorID are always taken from the request context, never from the form.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Body      string    `gorm:"size:140;not null" json:"body"`
	ArticleID uint      `gorm:"index;not null" json:"article_id"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Comment) String() string {
	return c.Body
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &Article{}, &Comment{}}
}
