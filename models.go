package main

import "time"

// MonitorRecord is the locally cached copy of a remote monitor definition.
// Priority and Project are derived fields recomputed on every refresh.
type MonitorRecord struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Message      string     `json:"message"`
	Type         string     `json:"type"`
	Query        string     `json:"query"`
	Priority     string     `gorm:"default:normal" json:"priority"`
	State        string     `json:"state"`
	OverallState string     `json:"overallState"`
	Options      string     `json:"options"` // raw JSON, stored verbatim
	Project      string     `gorm:"index" json:"project"`
	FirstSeen    time.Time  `json:"firstSeen"`
	LastUpdated  time.Time  `json:"lastUpdated"`
	FetchedAt    *time.Time `gorm:"index" json:"fetchedAt"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`

	Tags          []MonitorTag          `gorm:"foreignKey:MonitorID;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	Notifications []MonitorNotification `gorm:"foreignKey:MonitorID;constraint:OnDelete:CASCADE" json:"notifications,omitempty"`
	Downtimes     []MonitorDowntime     `gorm:"foreignKey:MonitorID;constraint:OnDelete:CASCADE" json:"downtimes,omitempty"`
}

// MonitorTag is a single tag attached to a monitor. The tag set is
// replaced wholesale on every upsert.
type MonitorTag struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MonitorID int64  `gorm:"not null;index;uniqueIndex:idx_monitor_tag" json:"monitorId"`
	Tag       string `gorm:"not null;uniqueIndex:idx_monitor_tag" json:"tag"`
}

// MonitorNotification is a notification target extracted from a monitor's
// message template: the @-mention, the trimmed line it appeared on, and
// whether it sits in the recovery section of the template.
type MonitorNotification struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	MonitorID  int64  `gorm:"not null;index" json:"monitorId"`
	Target     string `gorm:"not null" json:"target"`
	Context    string `json:"context"`
	IsRecovery bool   `gorm:"default:false" json:"isRecovery"`
}

// MonitorDowntime stores one matching downtime as an opaque JSON blob.
type MonitorDowntime struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MonitorID int64  `gorm:"not null;index" json:"monitorId"`
	Data      string `json:"data"` // raw JSON, stored verbatim
}

// NotificationTarget is the classifier's in-memory form of a parsed
// mention, before it is attached to a record.
type NotificationTarget struct {
	Target     string
	Context    string
	IsRecovery bool
}

// ProjectCount is one row of the active-monitors-per-project report.
type ProjectCount struct {
	Project string
	Count   int64
}
