package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status classifies one observed lab value against its reference range.
type Status string

const (
	StatusNormal    Status = "Normal"
	StatusHigh      Status = "High"
	StatusLow       Status = "Low"
	StatusPositive  Status = "Positive"
	StatusNegative  Status = "Negative"
	StatusAbnormal  Status = "Abnormal"
	StatusNotTested Status = "Not Tested"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNormal, StatusHigh, StatusLow, StatusPositive, StatusNegative, StatusAbnormal, StatusNotTested:
		return true
	}
	return false
}

// Span records where in the source text a value was matched. Kept for
// audit and debugging; never load-bearing.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Field is one observed lab value. Result preserves the source
// formatting (including thousands separators); Reference is the range
// the status was resolved against, which may come from the report text
// rather than the knowledge-base default.
type Field struct {
	Test      string `json:"test"`
	Result    string `json:"result"`
	Reference string `json:"reference,omitempty"`
	Status    Status `json:"status"`
	Span      *Span  `json:"span,omitempty"`
}

// CellCount is one WBC differential entry. Percentages and absolute
// counts are kept as parallel sequences keyed by cell type, never merged.
type CellCount struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type WBCDifferential struct {
	TLC                 *Field      `json:"tlc,omitempty"`
	DifferentialPercent []CellCount `json:"differential_percent"`
	AbsoluteCounts      []CellCount `json:"absolute_counts"`
}

type CBCHemogram struct {
	RBCMetrics      []Field         `json:"rbc_metrics"`
	WBCDifferential WBCDifferential `json:"wbc_differential"`
	Platelets       []Field         `json:"platelets"`
	ESR             []Field         `json:"esr"`
}

type UrineRE struct {
	Physical   []Field `json:"physical"`
	Chemical   []Field `json:"chemical"`
	Microscopy []Field `json:"microscopy"`
}

type MalariaResult struct {
	Result string `json:"result"`
	Status Status `json:"status"`
}

type WidalResult struct {
	Antigen      string `json:"antigen"`
	Result       string `json:"result"`
	Significance string `json:"significance"`
	Status       Status `json:"status"`
}

type InfectionScreens struct {
	Malaria MalariaResult `json:"malaria"`
	Widal   []WidalResult `json:"widal"`
}

// PatientInfo holds demographics lifted from the report header. Absent
// fields stay empty and are omitted from JSON; they are never fabricated.
type PatientInfo struct {
	Name            string `json:"name,omitempty"`
	Age             string `json:"age,omitempty"`
	Gender          string `json:"gender,omitempty"`
	SampleCollected string `json:"sample_collected,omitempty"`
	LabNo           string `json:"lab_no,omitempty"`
}

// Panel is the structured record extracted from one report text.
// Every section is always present so consumers never null-check;
// a refinement pass produces a new Panel rather than mutating one.
type Panel struct {
	PatientInfo        PatientInfo      `json:"patient_info"`
	CBCHemogram        CBCHemogram      `json:"cbc_hemogram"`
	UrineRE            UrineRE          `json:"urine_re"`
	InfectionScreens   InfectionScreens `json:"infection_screens"`
	LiverFunction      []Field          `json:"liver_function"`
	InflammationMarker []Field          `json:"inflammation_marker"`
	KeyHighlights      []string         `json:"key_highlights"`
}

// NewPanel returns a Panel with every sequence section initialized to an
// empty slice so JSON serialization never emits null sections.
func NewPanel() *Panel {
	return &Panel{
		CBCHemogram: CBCHemogram{
			RBCMetrics: []Field{},
			WBCDifferential: WBCDifferential{
				DifferentialPercent: []CellCount{},
				AbsoluteCounts:      []CellCount{},
			},
			Platelets: []Field{},
			ESR:       []Field{},
		},
		UrineRE: UrineRE{
			Physical:   []Field{},
			Chemical:   []Field{},
			Microscopy: []Field{},
		},
		InfectionScreens: InfectionScreens{
			Widal: []WidalResult{},
		},
		LiverFunction:      []Field{},
		InflammationMarker: []Field{},
		KeyHighlights:      []string{},
	}
}

// Normalize replaces any nil sequence section with an empty slice. Used
// after decoding externally produced panels (LLM output, stored jsonb).
func (p *Panel) Normalize() {
	if p.CBCHemogram.RBCMetrics == nil {
		p.CBCHemogram.RBCMetrics = []Field{}
	}
	if p.CBCHemogram.WBCDifferential.DifferentialPercent == nil {
		p.CBCHemogram.WBCDifferential.DifferentialPercent = []CellCount{}
	}
	if p.CBCHemogram.WBCDifferential.AbsoluteCounts == nil {
		p.CBCHemogram.WBCDifferential.AbsoluteCounts = []CellCount{}
	}
	if p.CBCHemogram.Platelets == nil {
		p.CBCHemogram.Platelets = []Field{}
	}
	if p.CBCHemogram.ESR == nil {
		p.CBCHemogram.ESR = []Field{}
	}
	if p.UrineRE.Physical == nil {
		p.UrineRE.Physical = []Field{}
	}
	if p.UrineRE.Chemical == nil {
		p.UrineRE.Chemical = []Field{}
	}
	if p.UrineRE.Microscopy == nil {
		p.UrineRE.Microscopy = []Field{}
	}
	if p.InfectionScreens.Widal == nil {
		p.InfectionScreens.Widal = []WidalResult{}
	}
	if p.LiverFunction == nil {
		p.LiverFunction = []Field{}
	}
	if p.InflammationMarker == nil {
		p.InflammationMarker = []Field{}
	}
	if p.KeyHighlights == nil {
		p.KeyHighlights = []string{}
	}
}

// Report is one uploaded medical report with its extracted panel.
// Once created, the raw text and panel are never edited in place; a
// re-extraction replaces the whole row.
type Report struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	FileName string `gorm:"column:file_name;type:varchar(255);not null"`
	// SHA-256 of the uploaded bytes, used for duplicate detection
	FileHash string `gorm:"column:file_hash;type:varchar(64);not null;index"`

	RawText string `gorm:"column:raw_text;type:text"`

	// Denormalized from Panel.PatientInfo.Name for lookup by name;
	// empty when the report carried no recognizable patient name.
	PatientName string `gorm:"column:patient_name;type:varchar(255);index"`

	Panel *Panel `gorm:"column:panel;serializer:json"`

	UploadedBy uuid.UUID `gorm:"column:uploaded_by;type:uuid;not null"`
}

func (Report) TableName() string {
	return "clinical.medical_reports"
}

// HasKnownPatient reports whether extraction recovered a patient name.
func (r *Report) HasKnownPatient() bool {
	return r.PatientName != "" && r.PatientName != "Unknown"
}

var nameTitles = []string{"Mr.", "Mrs.", "Ms.", "Dr.", "Miss", "Master", "Mr", "Mrs", "Ms", "Dr"}

// StripTitle removes a leading honorific from an extracted patient name.
// The denormalized lookup column stores bare names so that chat queries,
// which also strip titles, match exactly.
func StripTitle(name string) string {
	trimmed := strings.TrimSpace(name)
	for _, title := range nameTitles {
		if len(trimmed) > len(title) && strings.EqualFold(trimmed[:len(title)], title) {
			rest := trimmed[len(title):]
			if rest[0] == ' ' || trimmed[len(title)-1] == '.' {
				return strings.TrimSpace(rest)
			}
		}
	}
	return trimmed
}

type ListReportsQuery struct {
	PatientName string
	Page        int
	PageSize    int
}

type PagedReports struct {
	Reports    []*Report
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
