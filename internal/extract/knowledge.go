package extract

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryRBCMetric       Category = "rbc_metric"
	CategoryWBCDifferential Category = "wbc_differential"
	CategoryPlatelet        Category = "platelet"
	CategoryESR             Category = "esr"
	CategoryUrinePhysical   Category = "urine_physical"
	CategoryUrineChemical   Category = "urine_chemical"
	CategoryUrineMicroscopy Category = "urine_microscopy"
	CategoryInfectionMarker Category = "infection_marker"
	CategoryWidalAntigen    Category = "widal_antigen"
	CategoryLiverMarker     Category = "liver_marker"
	CategoryInflammation    Category = "inflammation_marker"
)

// TestDefinition describes one named lab test: how it appears in report
// text (aliases), its unit and the default reference range used when the
// source text carries none. Qualitative tests have an empty RefRange.
type TestDefinition struct {
	Name     string
	Aliases  []string
	Unit     string
	RefRange string
	Category Category
}

// Quantitative reports whether the definition carries a numeric range.
func (d *TestDefinition) Quantitative() bool {
	return d.RefRange != ""
}

// WidalAntigen is one Widal serology antigen. SignificantFrom is the
// titer denominator at or above which the result is clinically
// significant; zero means no threshold is defined for the antigen.
type WidalAntigen struct {
	Name            string
	Aliases         []string
	SignificantFrom int
}

// KnowledgeBase is the static table of test definitions. Built once at
// startup, validated fail-fast, and never mutated afterwards, so it is
// safe for unlimited concurrent readers.
type KnowledgeBase struct {
	RBCMetrics []TestDefinition
	TLC        TestDefinition
	// WBC differential cell types; percentages and absolute counts are
	// both keyed by these names.
	DifferentialCells []string
	Platelets         []TestDefinition
	ESR               TestDefinition

	UrinePhysical   []TestDefinition
	UrineChemical   []TestDefinition
	UrineMicroscopy []TestDefinition

	MalariaAliases []string
	WidalAntigens  []WidalAntigen

	LiverMarkers        []TestDefinition
	InflammationMarkers []TestDefinition
}

// DefaultKnowledgeBase returns the built-in test table covering the
// CBC/hemogram panel, urine R/E, infection screens, liver function and
// inflammation markers.
func DefaultKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		RBCMetrics: []TestDefinition{
			{Name: "Hemoglobin", Aliases: []string{"Hb", "HGB", "Hemoglobin"}, Unit: "g/dL", RefRange: "13 – 17", Category: CategoryRBCMetric},
			{Name: "PCV", Aliases: []string{"PCV", "Hematocrit", "HCT"}, Unit: "%", RefRange: "40 – 50", Category: CategoryRBCMetric},
			{Name: "RBC Count", Aliases: []string{"RBC", "Red Blood Cell Count"}, Unit: "mill/mm³", RefRange: "4.5 – 5.5", Category: CategoryRBCMetric},
			{Name: "MCV", Aliases: []string{"MCV", "Mean Corpuscular Volume"}, Unit: "fL", RefRange: "83 – 101", Category: CategoryRBCMetric},
			{Name: "MCH", Aliases: []string{"MCH", "Mean Corpuscular Hemoglobin"}, Unit: "pg", RefRange: "27 – 32", Category: CategoryRBCMetric},
			{Name: "MCHC", Aliases: []string{"MCHC", "Mean Corpuscular Hemoglobin Concentration"}, Unit: "g/dL", RefRange: "31.5 – 34.5", Category: CategoryRBCMetric},
			{Name: "RDW", Aliases: []string{"RDW", "Red Cell Distribution Width"}, Unit: "%", RefRange: "11.6 – 14", Category: CategoryRBCMetric},
		},
		TLC: TestDefinition{
			Name: "TLC", Aliases: []string{"TLC", "Total Leukocyte Count", "Total Leucocyte Count", "WBC"},
			Unit: "/cmm", RefRange: "4,400 – 11,000", Category: CategoryWBCDifferential,
		},
		DifferentialCells: []string{"Neutrophils", "Lymphocytes", "Monocytes", "Eosinophils", "Basophils"},
		Platelets: []TestDefinition{
			{Name: "Platelet Count", Aliases: []string{"Platelet", "PLT", "Thrombocyte"}, Unit: "lakh/mm³", RefRange: "1.5 – 4.5", Category: CategoryPlatelet},
			{Name: "MPV", Aliases: []string{"MPV", "Mean Platelet Volume"}, Unit: "fL", RefRange: "6.5 – 12", Category: CategoryPlatelet},
		},
		ESR: TestDefinition{
			Name: "ESR", Aliases: []string{"ESR", "Erythrocyte Sedimentation Rate"},
			Unit: "mm/hr", RefRange: "1 – 30", Category: CategoryESR,
		},
		UrinePhysical: []TestDefinition{
			{Name: "Colour", Aliases: []string{"Colour", "Color"}, Category: CategoryUrinePhysical},
			{Name: "Appearance", Aliases: []string{"Appearance"}, Category: CategoryUrinePhysical},
			{Name: "pH", Aliases: []string{"pH"}, Category: CategoryUrinePhysical},
			{Name: "Specific Gravity", Aliases: []string{"Specific Gravity"}, Category: CategoryUrinePhysical},
		},
		UrineChemical: []TestDefinition{
			{Name: "Glucose", Aliases: []string{"Glucose"}, Category: CategoryUrineChemical},
			{Name: "Protein", Aliases: []string{"Protein"}, Category: CategoryUrineChemical},
			{Name: "Ketones", Aliases: []string{"Ketones"}, Category: CategoryUrineChemical},
			{Name: "Bilirubin", Aliases: []string{"Bilirubin"}, Category: CategoryUrineChemical},
			{Name: "Urobilinogen", Aliases: []string{"Urobilinogen"}, Category: CategoryUrineChemical},
			{Name: "Blood", Aliases: []string{"Blood"}, Category: CategoryUrineChemical},
			{Name: "Nitrite", Aliases: []string{"Nitrite"}, Category: CategoryUrineChemical},
			{Name: "Leukocyte Esterase", Aliases: []string{"Leukocyte Esterase"}, Category: CategoryUrineChemical},
		},
		UrineMicroscopy: []TestDefinition{
			{Name: "RBCs", Aliases: []string{"RBCs"}, Category: CategoryUrineMicroscopy},
			{Name: "Pus cells (WBC)", Aliases: []string{"Pus cells"}, Category: CategoryUrineMicroscopy},
			{Name: "Epithelial cells", Aliases: []string{"Epithelial cells"}, Category: CategoryUrineMicroscopy},
			{Name: "Crystals", Aliases: []string{"Crystals"}, Category: CategoryUrineMicroscopy},
			{Name: "Casts", Aliases: []string{"Casts"}, Category: CategoryUrineMicroscopy},
			{Name: "Bacteria", Aliases: []string{"Bacteria"}, Category: CategoryUrineMicroscopy},
		},
		MalariaAliases: []string{"Malaria", "Malarial Parasite", "Blood Parasite"},
		WidalAntigens: []WidalAntigen{
			{Name: "S. typhi O (TO)", Aliases: []string{"TO", "O Antigen", "S. typhi O"}, SignificantFrom: 80},
			{Name: "S. typhi H (TH)", Aliases: []string{"TH", "H Antigen", "S. typhi H"}, SignificantFrom: 160},
			{Name: "S. paratyphi A (AH)", Aliases: []string{"AH", "A Antigen", "S. paratyphi A"}},
			{Name: "S. paratyphi B (BH)", Aliases: []string{"BH", "B Antigen", "S. paratyphi B"}},
		},
		LiverMarkers: []TestDefinition{
			{Name: "ALT / SGPT", Aliases: []string{"ALT", "SGPT", "Alanine Aminotransferase"}, Unit: "U/L", RefRange: "<41", Category: CategoryLiverMarker},
			{Name: "AST / SGOT", Aliases: []string{"AST", "SGOT", "Aspartate Aminotransferase"}, Unit: "U/L", RefRange: "10 – 40", Category: CategoryLiverMarker},
		},
		InflammationMarkers: []TestDefinition{
			{Name: "CRP", Aliases: []string{"CRP", "C-Reactive Protein"}, Unit: "mg/L", RefRange: "0 – 5", Category: CategoryInflammation},
		},
	}
}

// quantitative returns every definition grouped in registration order.
func (kb *KnowledgeBase) definitions() []*TestDefinition {
	defs := make([]*TestDefinition, 0, 32)
	for i := range kb.RBCMetrics {
		defs = append(defs, &kb.RBCMetrics[i])
	}
	defs = append(defs, &kb.TLC)
	for i := range kb.Platelets {
		defs = append(defs, &kb.Platelets[i])
	}
	defs = append(defs, &kb.ESR)
	for i := range kb.UrinePhysical {
		defs = append(defs, &kb.UrinePhysical[i])
	}
	for i := range kb.UrineChemical {
		defs = append(defs, &kb.UrineChemical[i])
	}
	for i := range kb.UrineMicroscopy {
		defs = append(defs, &kb.UrineMicroscopy[i])
	}
	for i := range kb.LiverMarkers {
		defs = append(defs, &kb.LiverMarkers[i])
	}
	for i := range kb.InflammationMarkers {
		defs = append(defs, &kb.InflammationMarkers[i])
	}
	return defs
}

// FindDefinition resolves a free token to a test definition by
// case-insensitive exact-then-substring alias matching. When aliases in
// two categories both match, the definition whose unit also appears in
// the token wins; otherwise the first-registered definition does.
func (kb *KnowledgeBase) FindDefinition(token string) (*TestDefinition, bool) {
	tok := strings.ToLower(strings.TrimSpace(token))
	if tok == "" {
		return nil, false
	}

	var exact, partial []*TestDefinition
	for _, def := range kb.definitions() {
		for _, alias := range def.Aliases {
			a := strings.ToLower(alias)
			if a == tok {
				exact = append(exact, def)
				break
			}
			if strings.Contains(tok, a) {
				partial = append(partial, def)
				break
			}
		}
	}

	candidates := exact
	if len(candidates) == 0 {
		candidates = partial
	}
	switch len(candidates) {
	case 0:
		return nil, false
	case 1:
		return candidates[0], true
	}
	// Ambiguous token: prefer the candidate whose unit suffix is visible
	// in the token, else the first registered.
	for _, def := range candidates {
		if def.Unit != "" && strings.Contains(tok, strings.ToLower(def.Unit)) {
			return def, true
		}
	}
	return candidates[0], true
}

// Validate checks every invariant the extractor depends on: aliases
// non-empty and unique within a category, and every reference range
// parseable. A malformed knowledge base is a configuration error and
// aborts startup rather than failing at request time.
func (kb *KnowledgeBase) Validate() error {
	seen := map[Category]map[string]bool{}
	checkAliases := func(name string, cat Category, aliases []string) error {
		if len(aliases) == 0 {
			return fmt.Errorf("knowledge base: test %q has no aliases", name)
		}
		if seen[cat] == nil {
			seen[cat] = map[string]bool{}
		}
		for _, a := range aliases {
			key := strings.ToLower(a)
			if key == "" {
				return fmt.Errorf("knowledge base: test %q has an empty alias", name)
			}
			if seen[cat][key] {
				return fmt.Errorf("knowledge base: alias %q duplicated within category %s", a, cat)
			}
			seen[cat][key] = true
		}
		return nil
	}

	for _, def := range kb.definitions() {
		if err := checkAliases(def.Name, def.Category, def.Aliases); err != nil {
			return err
		}
		if def.Quantitative() {
			if _, err := ParseRange(def.RefRange); err != nil {
				return fmt.Errorf("knowledge base: test %q: %w", def.Name, err)
			}
		}
	}

	for _, ag := range kb.WidalAntigens {
		if err := checkAliases(ag.Name, CategoryWidalAntigen, ag.Aliases); err != nil {
			return err
		}
		if ag.SignificantFrom < 0 {
			return fmt.Errorf("knowledge base: widal antigen %q has a negative significance threshold", ag.Name)
		}
	}

	if len(kb.MalariaAliases) == 0 {
		return fmt.Errorf("knowledge base: no malaria aliases registered")
	}
	if len(kb.DifferentialCells) == 0 {
		return fmt.Errorf("knowledge base: no WBC differential cell types registered")
	}

	return nil
}
