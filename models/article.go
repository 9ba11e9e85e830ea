package models

import (
	"strconv"
	"time"
)

// Article is a published piece of content owned by its author.
type Article struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Title    string    `gorm:"size:255;not null" json:"title"`
	Body     string    `gorm:"type:text;not null" json:"body"`
	Date     time.Time `gorm:"autoCreateTime;not null" json:"date"`
	AuthorID uint      `gorm:"index;not null" json:"author_id"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}

// String returns the article title.
func (a Article) String() string {
	return a.Title
}

// AbsoluteURL returns the path of the article's detail page.
func (a Article) AbsoluteURL() string {
	return "/articles/details/" + strconv.FormatUint(uint64(a.ID), 10)
}
