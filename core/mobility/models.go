package mobility

import (
	"math"
	"time"
)

type (
	Kind   string
	Status string
)

const (
	KindInternship Kind = "STAGE"
	KindStudy      Kind = "ETUDE"
	KindGroup      Kind = "GROUPE"

	StatusPreparation Status = "PREPARATION"
	StatusOngoing     Status = "ONGOING"
	StatusFinished    Status = "FINISHED"
	StatusValidated   Status = "VALIDATED"
)

// Mobility is a student's placement abroad. It is read-only here, enrollment happens elsewhere.
type Mobility struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Destination      string    `json:"destination" db:"destination"`
	CountryCode      string    `json:"country_code" db:"country_code"`
	HostOrganization string    `json:"host_organization" db:"host_organization"`
	Kind             Kind      `json:"kind" db:"kind"`
	Status           Status    `json:"status" db:"status"`
	StartDate        time.Time `json:"start_date" db:"start_date"`
	EndDate          time.Time `json:"end_date" db:"end_date"`
}

type ItemStatus string

const (
	ItemTodo       ItemStatus = "TODO"
	ItemInProgress ItemStatus = "IN_PROGRESS"
	ItemDone       ItemStatus = "DONE"
	ItemValidated  ItemStatus = "VALIDATED"
)

var AllItemStatuses = []ItemStatus{ItemTodo, ItemInProgress, ItemDone, ItemValidated}

func (s ItemStatus) IsValid() bool {
	for _, status := range AllItemStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ChecklistItem is a required administrative task of a Mobility.
// Its Status only changes through Transition.
type ChecklistItem struct {
	ID             string     `json:"id"`
	MobilityID     string     `json:"mobility_id"`
	Position       int        `json:"position"`
	Label          string     `json:"label"`
	Description    string     `json:"description,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	RequiresUpload bool       `json:"requires_upload"`
	UploadedFile   string     `json:"uploaded_file,omitempty"`
	Status         ItemStatus `json:"status"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MissingUpload flags items that need a document and have none. It does not block any transition.
func (i ChecklistItem) MissingUpload() bool {
	return i.RequiresUpload && i.UploadedFile == ""
}

// IsCompleted reports whether the student is done with the item, validated or not.
func (i ChecklistItem) IsCompleted() bool {
	return i.Status == ItemDone || i.Status == ItemValidated
}

type Progress struct {
	Total          int                `json:"total"`
	Completed      int                `json:"completed"`
	Validated      int                `json:"validated"`
	Percent        int                `json:"percent"`
	MissingUploads int                `json:"missing_uploads"`
	ByStatus       map[ItemStatus]int `json:"by_status"`
}

func ComputeProgress(items []ChecklistItem) Progress {
	p := Progress{
		Total:    len(items),
		ByStatus: make(map[ItemStatus]int, len(AllItemStatuses)),
	}
	for _, s := range AllItemStatuses {
		p.ByStatus[s] = 0
	}
	for _, item := range items {
		p.ByStatus[item.Status]++
		if item.IsCompleted() {
			p.Completed++
		}
		if item.Status == ItemValidated {
			p.Validated++
		}
		if item.MissingUpload() {
			p.MissingUploads++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
	}
	return p
}
