package experiments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

const (
	VariantControl   = "control"
	VariantTreatment = "variant"
)

type ABTest struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProgramID     uuid.UUID      `gorm:"type:uuid;column:program_id;not null;index" json:"program_id"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Description   string         `gorm:"column:description" json:"description,omitempty"`
	TrafficSplit  int            `gorm:"column:traffic_split;not null" json:"traffic_split"`
	Status        string         `gorm:"column:status;not null;index" json:"status"`
	ControlConfig datatypes.JSON `gorm:"column:control_config;type:jsonb" json:"control_config,omitempty"`
	VariantConfig datatypes.JSON `gorm:"column:variant_config;type:jsonb" json:"variant_config,omitempty"`
	Results       datatypes.JSON `gorm:"column:results;type:jsonb" json:"results,omitempty"`
	StartedAt     *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt       *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (ABTest) TableName() string { return "ab_test" }

func (t *ABTest) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusDraft
	}
	return nil
}

func (t ABTest) IsActive() bool { return t.Status == StatusActive }

// ABAssignment is written once per (test, customer) and never updated.
type ABAssignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TestID     uuid.UUID `gorm:"type:uuid;column:test_id;not null;uniqueIndex:idx_ab_assignment_test_customer,priority:1" json:"test_id"`
	CustomerID string    `gorm:"column:customer_id;not null;uniqueIndex:idx_ab_assignment_test_customer,priority:2" json:"customer_id"`
	Variant    string    `gorm:"column:variant;not null" json:"variant"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null" json:"assigned_at"`
}

func (ABAssignment) TableName() string { return "ab_assignment" }

func (a *ABAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
