package models

import "github.com/jinzhu/gorm"

// Author is keyed by the identity provider's subject (preferred_username).
// The application never generates or rewrites this id.
type Author struct {
	ID       string `gorm:"primary_key"`
	Nickname string
	Articles []Article `gorm:"foreignkey:AuthorID"`
	Reviews  []Review  `gorm:"foreignkey:AuthorID"`
}

func (Author) TableName() string {
	return "authors"
}

type Article struct {
	gorm.Model
	Title    string
	Content  string
	AuthorID string
	Reviews  []Review `gorm:"foreignkey:ArticleID"`
}

func (Article) TableName() string {
	return "articles"
}

type Review struct {
	gorm.Model
	Content   string
	AuthorID  string
	ArticleID uint
}

func (Review) TableName() string {
	return "reviews"
}
