package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type User struct {
	ID             uint      `gorm:"column:id;primaryKey" json:"id"`
	Email          string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	Name           string    `gorm:"column:name;size:255;not null" json:"name"`
	Role           string    `gorm:"column:role;size:50;not null;default:student" json:"role"`
	HashedPassword string    `gorm:"column:hashed_password;size:255;not null" json:"-"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

type Paper struct {
	ID            string      `gorm:"column:id;size:100;primaryKey" json:"id"`
	Title         string      `gorm:"column:title;size:500;not null" json:"title"`
	Authors       StringArray `gorm:"column:authors;type:text" json:"authors"`
	Abstract      string      `gorm:"column:abstract;type:text" json:"abstract,omitempty"`
	Year          int         `gorm:"column:year;index" json:"year"`
	Journal       string      `gorm:"column:journal;size:255" json:"journal"`
	DOI           string      `gorm:"column:doi;size:255;uniqueIndex" json:"doi,omitempty"`
	PDFURL        string      `gorm:"column:pdf_url;size:500" json:"pdf_url,omitempty"`
	OpenAccess    bool        `gorm:"column:open_access;default:false" json:"open_access"`
	Keywords      StringArray `gorm:"column:keywords;type:text" json:"keywords"`
	CitationCount int         `gorm:"column:citation_count;default:0" json:"citation_count"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"-"`
}

type LibraryItem struct {
	ID      uint        `gorm:"column:id;primaryKey" json:"id"`
	UserID  uint        `gorm:"column:user_id;not null;uniqueIndex:idx_library_user_paper" json:"user_id"`
	PaperID string      `gorm:"column:paper_id;size:100;not null;uniqueIndex:idx_library_user_paper" json:"paper_id"`
	Paper   *Paper      `gorm:"foreignKey:PaperID" json:"paper,omitempty"`
	Tags    StringArray `gorm:"column:tags;type:text" json:"tags"`
	Notes   string      `gorm:"column:notes;type:text" json:"notes"`
	SavedAt time.Time   `gorm:"column:saved_at" json:"saved_at"`
}

// StringArray é gravada como JSON numa coluna texto.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}
	if len(data) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(data, a)
}
