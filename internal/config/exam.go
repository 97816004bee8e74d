package config

import "bimbel_asn_backend/internal/model"

// SubjectConfig is one row of the static (category, subject) lookup: default
// question count and time limit in minutes. Read-only product data.
type SubjectConfig struct {
	Label    string
	Count    int
	Time     int
	Subtypes []string
}

var TesPOLRI = map[string]SubjectConfig{
	"bahasa_inggris":     {Label: "Bahasa Inggris", Count: 60, Time: 60},
	"numerik":            {Label: "Numerik", Count: 20, Time: 30},
	"pengetahuan_umum":   {Label: "Pengetahuan Umum", Count: 30, Time: 40},
	"wawasan_kebangsaan": {Label: "Wawasan Kebangsaan", Count: 40, Time: 50},
}

var TesCPNS = map[string]SubjectConfig{
	"tiu":                {Label: "Tes Intelegensi Umum", Count: 30, Time: 40, Subtypes: []string{"verbal", "numerik", "figural"}},
	"wawasan_kebangsaan": {Label: "Wawasan Kebangsaan", Count: 30, Time: 35},
	"tkp":                {Label: "Tes Karakteristik Pribadi", Count: 35, Time: 40},
}

func subjectTable(category model.TestCategory) map[string]SubjectConfig {
	switch category {
	case model.CategoryPOLRI:
		return TesPOLRI
	case model.CategoryCPNS:
		return TesCPNS
	}
	return nil
}

// SubjectFor looks up the subject row for a category; ok is false for
// unknown subjects.
func SubjectFor(category model.TestCategory, subject string) (SubjectConfig, bool) {
	table := subjectTable(category)
	if table == nil {
		return SubjectConfig{}, false
	}
	sc, ok := table[subject]
	return sc, ok
}

// DefaultQuestionCount returns the configured count for a subject, falling
// back to the category default.
func DefaultQuestionCount(category model.TestCategory, subject string) int {
	if sc, ok := SubjectFor(category, subject); ok {
		return sc.Count
	}
	if category == model.CategoryCPNS {
		return 30
	}
	return 50
}

// DefaultTimeLimit returns the configured time limit in minutes for a
// subject, falling back to the category default.
func DefaultTimeLimit(category model.TestCategory, subject string) int {
	if sc, ok := SubjectFor(category, subject); ok {
		return sc.Time
	}
	if category == model.CategoryCPNS {
		return 40
	}
	return 60
}
