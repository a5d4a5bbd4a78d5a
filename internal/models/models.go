package models

import (
	"time"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Subject struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
}

type AcademicYear struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
}

type TaskType struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
}

type Author struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
}

type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"not null"                 json:"name"`
}

type Task struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string       `gorm:"not null"                 json:"name"`
	Description    string       `json:"description"`
	SubjectID      uint         `gorm:"index;not null"           json:"subject_id"`
	Subject        Subject      `json:"subject"`
	AcademicYearID uint         `gorm:"index;not null"           json:"academic_year_id"`
	AcademicYear   AcademicYear `json:"academic_year"`
	TaskTypeID     uint         `gorm:"index;not null"           json:"task_type_id"`
	TaskType       TaskType     `json:"task_type"`
	Authors        []Author     `gorm:"many2many:task_authors"   json:"authors"`
	Tags           []Tag        `gorm:"many2many:task_tags"      json:"tags"`
}

type Solution struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskID      uint   `gorm:"index;not null"           json:"task_id"`
	Task        Task   `json:"-"`
	AuthorID    uint   `gorm:"index;not null"           json:"author_id"`
	Author      Author `json:"author"`
	Description string `json:"description"`
}

type File struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Key         string    `gorm:"unique;not null"          json:"-"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	TaskID      *uint     `gorm:"index"                    json:"task_id,omitempty"`
	SolutionID  *uint     `gorm:"index"                    json:"solution_id,omitempty"`
	Created     time.Time `json:"created"`
}
