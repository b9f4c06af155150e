package service

import (
	"github.com/nmibc-risk-mcp/internal/domain"
)

// ProtocolRegistry is the read-only table of EAU 2025 treatment and follow-up
// protocols, one per risk category. It is safe for concurrent use.
type ProtocolRegistry struct {
	records map[domain.RiskCategory]domain.ProtocolRecord
}

// eauProtocols is built once at package initialisation and never written again.
var eauProtocols = buildEAUProtocols()

// NewProtocolRegistry returns the registry backed by the EAU 2025 protocol table.
func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{records: eauProtocols}
}

// Lookup returns a copy of the protocol for the category. A category outside
// the four risk groups is a programming error and yields a *domain.ConfigurationError.
func (r *ProtocolRegistry) Lookup(category domain.RiskCategory) (domain.ProtocolRecord, error) {
	record, ok := r.records[category]
	if !ok {
		return domain.ProtocolRecord{}, domain.NewConfigurationError(category, "no protocol registered")
	}
	return record.Clone(), nil
}

// MustLookup is Lookup for categories produced by the classifier; it panics on a miss.
func (r *ProtocolRegistry) MustLookup(category domain.RiskCategory) domain.ProtocolRecord {
	record, err := r.Lookup(category)
	if err != nil {
		panic(err)
	}
	return record
}

// Categories lists the registered categories in ascending severity.
func (r *ProtocolRegistry) Categories() []domain.RiskCategory {
	return domain.AllRiskCategories()
}

// All returns copies of every protocol in ascending severity.
func (r *ProtocolRegistry) All() []domain.ProtocolRecord {
	categories := r.Categories()
	records := make([]domain.ProtocolRecord, 0, len(categories))
	for _, category := range categories {
		records = append(records, r.MustLookup(category))
	}
	return records
}

func text(s string) *string {
	return &s
}

func buildEAUProtocols() map[domain.RiskCategory]domain.ProtocolRecord {
	return map[domain.RiskCategory]domain.ProtocolRecord{
		domain.RiskLow: {
			Category:                 domain.RiskLow,
			DisplayLabel:             "Niskie (Low)",
			StyleTag:                 "low",
			ShortRecommendation:      "Niskie ryzyko - obserwacja po pojedynczej wlewce.",
			TreatmentText:            "Pojedyncza wlewka chemioterapeutyku (np. Mitomycyna C, Gemcytabina) bezpośrednio po TURBT (do 24h).",
			InductionDescription:     nil,
			MaintenanceOffsetsMonths: []int{},
			FollowUpText:             "Cystoskopia w 3. miesiącu. Jeśli negatywna: kolejna w 12. miesiącu, następnie raz w roku przez 5 lat. Nie wymaga rutynowej TK górnych dróg moczowych.",
		},
		domain.RiskIntermediate: {
			Category:                 domain.RiskIntermediate,
			DisplayLabel:             "Pośrednie (Intermediate)",
			StyleTag:                 "intermediate",
			ShortRecommendation:      "Grupa heterogenna. Indywidualizacja leczenia.",
			TreatmentText:            "Adiuwantowa chemioterapia (maks. 1 rok) lub BCG (1 rok). Decyzja zależy od indywidualnego ryzyka nawrotu.",
			InductionDescription:     text("Indukcja: 6 wlewek co tydzień. Podtrzymywanie: 3 wlewki co tydzień w miesiącach 3, 6, 12."),
			MaintenanceOffsetsMonths: []int{3, 6, 12},
			FollowUpText:             "Cystoskopia w 3, 6, 12 miesiącu, następnie co rok przez 5 lat. TK urografia (URO-TK) tylko przy wskazaniach klinicznych.",
		},
		domain.RiskHigh: {
			Category:                 domain.RiskHigh,
			DisplayLabel:             "Wysokie (High)",
			StyleTag:                 "high",
			ShortRecommendation:      "Wymagane leczenie podtrzymujące BCG.",
			TreatmentText:            "Pełna dawka BCG przez 1-3 lata (standard). W przypadku nietolerancji/braku dostępności: chemioterapia wlewek.",
			InductionDescription:     text("Indukcja: 6 wlewek co tydzień. Podtrzymywanie (SWOG): 3 wlewki co tydzień w mies. 3, 6, 12, 18, 24, 30, 36."),
			MaintenanceOffsetsMonths: []int{3, 6, 12, 18, 24, 30, 36},
			FollowUpText:             "Cystoskopia i cytologia: co 3 mies. przez 2 lata, potem co 6 mies. do 5 lat, następnie co rok. TK urografia (URO-TK) co 1-2 lata (kontrola górnych dróg moczowych).",
		},
		domain.RiskVeryHigh: {
			Category:                 domain.RiskVeryHigh,
			DisplayLabel:             "Bardzo Wysokie (Very High)",
			StyleTag:                 "very-high",
			ShortRecommendation:      "Najwyższe ryzyko progresji i zgonu. Rozważ wczesną cystektomię (RC).",
			TreatmentText:            "Standardem jest wczesna Radykalna Cystektomia (RC). Jeśli pacjent odmawia lub jest niekwalifikowalny: BCG przez 1-3 lata.",
			InductionDescription:     text("Indukcja: 6 wlewek co tydzień. Podtrzymywanie: 3 wlewki co tydzień w mies. 3, 6, 12, 18, 24, 30, 36. Przy jakimkolwiek niepowodzeniu -> natychmiastowa RC."),
			MaintenanceOffsetsMonths: []int{3, 6, 12, 18, 24, 30, 36},
			FollowUpText:             "Ścisły nadzór! Cystoskopia i cytologia co 3 mies. przez 2 lata, potem co 6 mies. TK urografia (URO-TK) co 1 rok. Biopsje mapujące przy podejrzeniu wznowy.",
		},
	}
}
