package relevance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"jobscout/internal/config"
	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// remoteKeywords and usaKeywords drive the coarse early location check
// over search-result metadata. Absent evidence passes; the full posting
// text gets the stricter check later.
var remoteKeywords = []string{"remote", "work from home", "wfh", "hybrid", "anywhere"}

var usaKeywords = []string{
	"united states", "usa", "u.s.", "us", "america",
	"san francisco", "new york", "seattle", "austin", "boston",
	"chicago", "los angeles", "san diego", "san jose", "denver",
	"atlanta", "dallas", "houston", "philadelphia", "phoenix",
	"miami", "portland", "nashville", "detroit", "minneapolis",
	"california", "texas", "florida", "washington",
	"massachusetts", "illinois", "colorado", "georgia", "north carolina",
	"virginia", "arizona", "tennessee", "oregon", "michigan",
}

var nonDomesticKeywords = []string{
	"canada", "toronto", "vancouver", "montreal", "ottawa",
	"uk", "united kingdom", "london", "england", "britain",
	"germany", "berlin", "munich", "france", "paris",
	"india", "bangalore", "mumbai", "delhi", "hyderabad",
	"china", "beijing", "shanghai", "singapore", "australia",
	"sydney", "melbourne", "japan", "tokyo", "netherlands",
	"amsterdam", "sweden", "stockholm", "switzerland", "zurich",
	"spain", "madrid", "italy", "rome", "milan", "brazil",
	"sao paulo", "mexico", "mexico city", "poland", "warsaw",
	"ireland", "dublin", "israel", "tel aviv", "south korea",
	"seoul", "taiwan", "taipei", "hong kong", "philippines",
	"manila", "indonesia", "jakarta", "thailand", "bangkok",
	"vietnam", "ho chi minh", "malaysia", "kuala lumpur",
}

// Scorer computes deterministic relevance scores for parsed postings
// against one user profile. Profile sets are normalized once at
// construction and never mutated afterwards.
type Scorer struct {
	weights config.ScoreWeights

	maxYears           int
	remoteOnly         bool
	requiredSkills     []string
	preferredSkills    []string
	preferredLocations []string
	excludeKeywords    []string

	log *logrus.Logger
}

// New builds a Scorer from a profile and scoring weights
func New(profile models.UserProfile, weights config.ScoreWeights) *Scorer {
	return &Scorer{
		weights:            weights,
		maxYears:           profile.MaxYearsOfExperience,
		remoteOnly:         profile.RemoteOnly,
		requiredSkills:     normalizeAll(profile.RequiredSkills),
		preferredSkills:    normalizeAll(profile.PreferredSkills),
		preferredLocations: normalizeAll(profile.PreferredLocations),
		excludeKeywords:    normalizeAll(profile.ExcludeTitleKeywords),
		log:                utils.GetLogger(),
	}
}

func normalizeAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Score computes the 0-100 relevance score for one posting. Pure and
// deterministic: the same job and profile always produce the same score.
func (s *Scorer) Score(job *models.JobPosting) int {
	score := 0

	if job.YearsOfExperience <= s.maxYears {
		score += s.weights.ExperienceFit
	} else {
		score += s.weights.ExperiencePenalty
	}

	jobSkills := append(append([]string{}, job.RequiredSkills...), job.NiceToHaveSkills...)

	requiredMatches := skillMatchCount(jobSkills, s.requiredSkills)
	score += capAt(requiredMatches*s.weights.RequiredSkill, s.weights.RequiredSkillCap)

	preferredMatches := skillMatchCount(jobSkills, s.preferredSkills)
	score += capAt(preferredMatches*s.weights.PreferredSkill, s.weights.PreferredSkillCap)

	if s.locationMatches(job.Location) {
		score += s.weights.LocationMatch
	}

	if s.remoteOnly && job.Remote {
		score += s.weights.RemotePreferred
	} else if job.Remote {
		score += s.weights.RemoteBonus
	}

	if s.titleExcluded(job.Title) {
		score += s.weights.ExcludedTitle
	}

	return clamp(score)
}

// FilterJobs scores all jobs and returns those at or above minScore,
// sorted descending by score. The sort is stable so ties keep their
// original relative order.
func (s *Scorer) FilterJobs(jobs []*models.JobPosting, minScore int) []models.ScoredJob {
	scored := make([]models.ScoredJob, 0, len(jobs))
	for _, job := range jobs {
		if job.Location != "" && !job.Remote && !s.isDomesticOrRemote(job.Location) {
			s.log.WithFields(logrus.Fields{
				"title":    job.Title,
				"location": job.Location,
			}).Debug("Dropping job with non-domestic location")
			continue
		}

		if score := s.Score(job); score >= minScore {
			scored = append(scored, models.ScoredJob{Job: job, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	s.log.WithFields(logrus.Fields{
		"kept":      len(scored),
		"total":     len(jobs),
		"min_score": minScore,
	}).Info("Relevance filter complete")

	return scored
}

// ExplainScore reproduces the scoring computation with a per-component
// breakdown for audit output. The total always equals Score(job).
func (s *Scorer) ExplainScore(job *models.JobPosting) (int, map[string]string) {
	components := make(map[string]string)
	total := 0

	if job.YearsOfExperience <= s.maxYears {
		components["experience"] = fmt.Sprintf("%+d (requires %d, max %d)", s.weights.ExperienceFit, job.YearsOfExperience, s.maxYears)
		total += s.weights.ExperienceFit
	} else {
		components["experience"] = fmt.Sprintf("%+d (requires %d, max %d)", s.weights.ExperiencePenalty, job.YearsOfExperience, s.maxYears)
		total += s.weights.ExperiencePenalty
	}

	jobSkills := append(append([]string{}, job.RequiredSkills...), job.NiceToHaveSkills...)

	requiredMatches := skillMatchCount(jobSkills, s.requiredSkills)
	requiredPoints := capAt(requiredMatches*s.weights.RequiredSkill, s.weights.RequiredSkillCap)
	components["required_skills"] = fmt.Sprintf("%+d (%d matches)", requiredPoints, requiredMatches)
	total += requiredPoints

	preferredMatches := skillMatchCount(jobSkills, s.preferredSkills)
	preferredPoints := capAt(preferredMatches*s.weights.PreferredSkill, s.weights.PreferredSkillCap)
	components["preferred_skills"] = fmt.Sprintf("%+d (%d matches)", preferredPoints, preferredMatches)
	total += preferredPoints

	if s.locationMatches(job.Location) {
		components["location"] = fmt.Sprintf("%+d (%s)", s.weights.LocationMatch, job.Location)
		total += s.weights.LocationMatch
	} else {
		components["location"] = fmt.Sprintf("+0 (%s)", job.Location)
	}

	if s.remoteOnly && job.Remote {
		components["remote"] = fmt.Sprintf("%+d (remote, remote-only profile)", s.weights.RemotePreferred)
		total += s.weights.RemotePreferred
	} else if job.Remote {
		components["remote"] = fmt.Sprintf("%+d (remote available)", s.weights.RemoteBonus)
		total += s.weights.RemoteBonus
	}

	if s.titleExcluded(job.Title) {
		components["title_exclusion"] = fmt.Sprintf("%+d (contains excluded keyword)", s.weights.ExcludedTitle)
		total += s.weights.ExcludedTitle
	}

	return clamp(total), components
}

// ShouldSkipEarly decides from search-result metadata alone whether a
// candidate is worth extracting. It checks excluded title keywords and
// a coarse domestic-or-remote heuristic; absent evidence passes.
func (s *Scorer) ShouldSkipEarly(title, snippet, displayLink string) bool {
	if title == "" {
		return false
	}

	if s.titleExcluded(title) {
		return true
	}

	if snippet != "" {
		snippetLower := strings.ToLower(snippet)
		for _, kw := range s.excludeKeywords {
			if strings.Contains(snippetLower, kw) {
				return true
			}
		}
	}

	combined := strings.TrimSpace(title + " " + snippet + " " + displayLink)
	return !s.isDomesticOrRemote(combined)
}

// isDomesticOrRemote is the coarse location heuristic: remote or US
// evidence passes, known non-domestic evidence fails, no evidence
// passes so the posting gets the full check after parsing.
func (s *Scorer) isDomesticOrRemote(text string) bool {
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)

	for _, kw := range remoteKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range usaKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range nonDomesticKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func (s *Scorer) locationMatches(location string) bool {
	if location == "" {
		return false
	}
	lower := strings.ToLower(location)

	if strings.Contains(lower, "remote") {
		return true
	}
	for _, loc := range s.preferredLocations {
		if strings.Contains(lower, loc) {
			return true
		}
	}
	return false
}

func (s *Scorer) titleExcluded(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range s.excludeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// skillMatchCount counts job skills that match any target skill by
// case-insensitive substring in either direction. Each job skill counts
// at most once.
func skillMatchCount(jobSkills, targetSkills []string) int {
	if len(jobSkills) == 0 || len(targetSkills) == 0 {
		return 0
	}

	matches := 0
	seen := make(map[string]bool, len(jobSkills))
	for _, raw := range jobSkills {
		jobSkill := strings.ToLower(strings.TrimSpace(raw))
		if jobSkill == "" || seen[jobSkill] {
			continue
		}
		seen[jobSkill] = true
		for _, target := range targetSkills {
			if strings.Contains(jobSkill, target) || strings.Contains(target, jobSkill) {
				matches++
				break
			}
		}
	}
	return matches
}

func capAt(points, limit int) int {
	if points > limit {
		return limit
	}
	return points
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
