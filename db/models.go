package db

import (
	"time"

	"gorm.io/gorm"
)

// Operation is one journaled install, uninstall or discard.
type Operation struct {
	gorm.Model
	Batch      string `gorm:"index"` // queue batch id
	Kind       string // install, uninstall, discard
	Identity   string `gorm:"index"`
	Hash       string // hex content hash of the identity
	Result     string // ok, error, abort
	Message    string // error text when Result is not ok
	TargetDir  string
	StartedAt  time.Time
	FinishedAt time.Time
}
