package releases

import "time"

// Release statuses.
const (
	StatusActive     = "active"
	StatusSuperseded = "superseded"
)

// Release sources.
const (
	SourceStartup = "startup"
	SourceReload  = "reload"
	SourceCLI     = "cli"
)

// Release is one distinct descriptor version the host has served.
type Release struct {
	ID         string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	Digest     string    `gorm:"column:digest;type:varchar(64);index" json:"digest"`
	Runtime    string    `gorm:"column:runtime;type:varchar(64)" json:"runtime"`
	Entrypoint string    `gorm:"column:entrypoint;type:varchar(1024)" json:"entrypoint"`
	Handlers   int       `gorm:"column:handlers" json:"handlers"`
	Source     string    `gorm:"column:source;type:varchar(16)" json:"source"`
	Status     string    `gorm:"column:status;type:varchar(16);index" json:"status"`
	CreatedAt  time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Release) TableName() string {
	return "releases"
}

var expectedColumns = []string{"id", "digest", "runtime", "entrypoint", "handlers", "source", "status", "created_at"}
