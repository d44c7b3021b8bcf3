package models

import "time"

// AdmissionMonths enumerates the twelve accepted values for the
// admission month field. Other values are stored as-is; the form layer
// is expected to submit one of these.
var AdmissionMonths = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Student represents an enrolled (or previously enrolled) member of
// the reading room. Rows are never hard-deleted on ordinary removal;
// the active flag carries the soft-delete state.
type Student struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	GuardianName   string    `db:"guardian_name" json:"guardian_name"`
	Phone          string    `db:"phone" json:"phone"`
	Address        string    `db:"address" json:"address"`
	Shift          string    `db:"shift" json:"shift"`
	SheetNo        string    `db:"sheet_no" json:"sheet_no"`
	AdmissionMonth string    `db:"admission_month" json:"admission_month"`
	FeeAmount      float64   `db:"fee_amount" json:"fee_amount"`
	AadhaarNo      string    `db:"aadhaar_no" json:"aadhaar_no"`
	AdmissionDate  time.Time `db:"admission_date" json:"admission_date"`
	Active         bool      `db:"active" json:"active"`
	DocumentFile   string    `db:"document_file" json:"document_file,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	// Search matches name or guardian name as a substring.
	Search string
	// SheetNo matches the sheet number as a prefix.
	SheetNo string
	// AdmissionMonth matches the admission month as a prefix.
	AdmissionMonth string
	// Active selects the enrolled set (true) or the removed set (false).
	Active *bool
}

// Filtered reports whether any search criterion is set. Filtered
// listings order by sheet number ascending; the unfiltered legacy
// listing orders by identifier descending.
func (f StudentFilter) Filtered() bool {
	return f.Search != "" || f.SheetNo != "" || f.AdmissionMonth != ""
}

// ReportSummary carries the dashboard counters derived from the
// student table. Values are recomputed on every call.
type ReportSummary struct {
	ActiveStudents   int       `db:"active_students" json:"active_students"`
	InactiveStudents int       `db:"inactive_students" json:"inactive_students"`
	TotalFees        float64   `db:"total_fees" json:"total_fees"`
	GeneratedAt      time.Time `db:"-" json:"generated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
