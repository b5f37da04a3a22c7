// Package matching computes weighted compatibility scores between a
// client's stated requirements and candidate accountant profiles.
package matching

import (
	"math"
	"sort"
	"strings"
)

// Factor weights. Fixed constants, not configurable at runtime.
const (
	WeightSpecialization = 0.35
	WeightLocation       = 0.20
	WeightBudget         = 0.15
	WeightCommunication  = 0.12
	WeightOrgSize        = 0.10
	WeightUrgency        = 0.08
)

// ClientProfile carries a match request's requirements. Zero values
// mean unspecified.
type ClientProfile struct {
	RequiredServices   []string
	Location           string
	AcceptsRemote      bool
	BudgetMin          float64
	BudgetMax          float64
	CommunicationStyle string
	OrgSize            string
	Urgency            string
}

type CandidateProfile struct {
	ID                 string
	Name               string
	Specializations    []string
	Province           string
	AcceptsRemote      bool
	BudgetMin          float64
	BudgetMax          float64
	CommunicationStyle string
	FirmSize           string
	YearsExperience    int
	Verified           bool
	Active             bool
}

type Factors struct {
	Specialization float64
	Location       float64
	Budget         float64
	Communication  float64
	OrgSize        float64
	Urgency        float64
}

type MatchResult struct {
	Total   int
	Factors Factors
	Label   string
}

type Ranked struct {
	Candidate CandidateProfile
	Result    MatchResult
}

// Score computes the 0–100 weighted compatibility score with its
// six-factor breakdown.
func Score(client ClientProfile, candidate CandidateProfile) MatchResult {
	f := Factors{
		Specialization: specializationScore(client.RequiredServices, candidate.Specializations),
		Location:       locationScore(client, candidate),
		Budget:         budgetScore(client, candidate),
		Communication:  communicationScore(client.CommunicationStyle, candidate.CommunicationStyle),
		OrgSize:        orgSizeScore(client.OrgSize, candidate.FirmSize),
		Urgency:        urgencyScore(client.Urgency, candidate.YearsExperience),
	}

	weighted := f.Specialization*WeightSpecialization +
		f.Location*WeightLocation +
		f.Budget*WeightBudget +
		f.Communication*WeightCommunication +
		f.OrgSize*WeightOrgSize +
		f.Urgency*WeightUrgency

	total := int(math.Round(weighted * 100))
	return MatchResult{
		Total:   total,
		Factors: f,
		Label:   Label(total),
	}
}

func Label(total int) string {
	switch {
	case total >= 90:
		return "Excellent Match"
	case total >= 80:
		return "Very Good Match"
	case total >= 70:
		return "Good Match"
	case total >= 60:
		return "Fair Match"
	}
	return "Poor Match"
}

// fraction of required services that substring-match (either
// direction, case-insensitive) some candidate specialization
func specializationScore(required, specializations []string) float64 {
	if len(required) == 0 || len(specializations) == 0 {
		return 0
	}

	matched := 0
	for _, req := range required {
		reqLower := strings.ToLower(strings.TrimSpace(req))
		if reqLower == "" {
			continue
		}
		for _, spec := range specializations {
			specLower := strings.ToLower(strings.TrimSpace(spec))
			if specLower == "" {
				continue
			}
			if strings.Contains(specLower, reqLower) || strings.Contains(reqLower, specLower) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(required))
}

func locationScore(client ClientProfile, candidate CandidateProfile) float64 {
	if client.AcceptsRemote && candidate.AcceptsRemote {
		return 1.0
	}
	if candidate.Province != "" &&
		strings.Contains(strings.ToLower(client.Location), strings.ToLower(candidate.Province)) {
		return 0.9
	}
	if client.AcceptsRemote || candidate.AcceptsRemote {
		return 0.7
	}
	return 0.3
}

func budgetScore(client ClientProfile, candidate CandidateProfile) float64 {
	// a zero bound means the bound was not supplied, so the factor
	// stays neutral; a client with a genuine $0 floor should state
	// BudgetMin just above zero
	if client.BudgetMin == 0 || client.BudgetMax == 0 ||
		candidate.BudgetMin == 0 || candidate.BudgetMax == 0 {
		return 0.5
	}

	overlap := math.Min(client.BudgetMax, candidate.BudgetMax) -
		math.Max(client.BudgetMin, candidate.BudgetMin)
	if overlap <= 0 {
		var distance float64
		if candidate.BudgetMin > client.BudgetMax {
			distance = candidate.BudgetMin - client.BudgetMax
		} else {
			distance = client.BudgetMin - candidate.BudgetMax
		}
		return math.Max(0, 1-distance/client.BudgetMax)
	}

	avgWidth := ((client.BudgetMax - client.BudgetMin) + (candidate.BudgetMax - candidate.BudgetMin)) / 2
	if avgWidth <= 0 {
		return 1.0
	}
	return math.Min(1.0, overlap/avgWidth)
}

// unordered compatible style pairs, checked both directions
var compatibleStyles = [][2]string{
	{"formal", "professional"},
	{"casual", "friendly"},
	{"direct", "efficient"},
	{"collaborative", "consultative"},
}

func communicationScore(clientStyle, candidateStyle string) float64 {
	clientStyle = strings.ToLower(strings.TrimSpace(clientStyle))
	candidateStyle = strings.ToLower(strings.TrimSpace(candidateStyle))
	if clientStyle == "" || candidateStyle == "" {
		return 0.7
	}
	if clientStyle == candidateStyle {
		return 1.0
	}
	for _, pair := range compatibleStyles {
		if (clientStyle == pair[0] && candidateStyle == pair[1]) ||
			(clientStyle == pair[1] && candidateStyle == pair[0]) {
			return 0.8
		}
	}
	return 0.5
}

// client org size -> acceptable candidate firm sizes
var orgSizeFit = map[string][]string{
	"startup":    {"solo", "small"},
	"small":      {"solo", "small", "medium"},
	"medium":     {"small", "medium", "large"},
	"large":      {"medium", "large", "big4"},
	"enterprise": {"large", "big4"},
}

func orgSizeScore(orgSize, firmSize string) float64 {
	orgSize = strings.ToLower(strings.TrimSpace(orgSize))
	firmSize = strings.ToLower(strings.TrimSpace(firmSize))
	if orgSize == "" || firmSize == "" {
		return 0.7
	}
	for _, acceptable := range orgSizeFit[orgSize] {
		if firmSize == acceptable {
			return 1.0
		}
	}
	return 0.4
}

func urgencyScore(urgency string, yearsExperience int) float64 {
	switch strings.ToLower(strings.TrimSpace(urgency)) {
	case "urgent", "immediate":
		switch {
		case yearsExperience >= 10:
			return 1.0
		case yearsExperience >= 5:
			return 0.8
		default:
			return 0.6
		}
	case "flexible", "planning":
		return 0.9
	case "":
		return 0.8
	}
	return 0.8
}

// FindTopMatches filters to verified, active candidates, scores each
// and returns the best `limit` in descending score order. Equal scores
// keep their input relative order. A candidate whose scoring panics is
// given score 0 and label "Error" rather than aborting the ranking.
func FindTopMatches(client ClientProfile, candidates []CandidateProfile, limit int) []Ranked {
	var ranked []Ranked
	for _, candidate := range candidates {
		if !candidate.Verified || !candidate.Active {
			continue
		}
		ranked = append(ranked, Ranked{
			Candidate: candidate,
			Result:    scoreSafely(client, candidate),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Total > ranked[j].Result.Total
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func scoreSafely(client ClientProfile, candidate CandidateProfile) (result MatchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = MatchResult{Total: 0, Label: "Error"}
		}
	}()
	return Score(client, candidate)
}
