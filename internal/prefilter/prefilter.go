package prefilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"jobscout/pkg/models"
	"jobscout/pkg/utils"
)

// yoePatterns match numeric experience requirements. The first capture
// group is always the year count.
var yoePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\+?\s*(?:years?|yrs?)(?:\s+of)?\s+(?:experience|exp)`),
	regexp.MustCompile(`(?i)(\d+)\s*-\s*\d+\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(?i)(?:minimum|at least|requires?)\s+(\d+)\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:years?|yrs?)\s+(?:of\s+)?(?:relevant|professional|industry)`),
}

// nonDomesticLocations are countries and cities that disqualify a posting
// when they appear in a location context.
var nonDomesticLocations = []string{
	// Countries
	"india", "uk", "united kingdom", "canada", "germany", "france",
	"singapore", "australia", "ireland", "netherlands", "israel",
	"japan", "china", "brazil", "mexico", "poland", "romania",
	"philippines", "vietnam", "ukraine", "spain", "italy", "sweden",
	// Cities
	"bangalore", "bengaluru", "hyderabad", "pune", "mumbai", "delhi",
	"chennai", "noida", "gurgaon", "gurugram",
	"london", "manchester", "edinburgh", "cambridge uk",
	"toronto", "vancouver", "montreal", "ottawa", "calgary",
	"berlin", "munich", "frankfurt", "hamburg",
	"paris", "amsterdam", "dublin", "tel aviv",
	"tokyo", "shanghai", "beijing", "sydney", "melbourne",
}

var citizenshipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)us\s+citizen(?:ship)?(?:\s+required)?`),
	regexp.MustCompile(`(?i)u\.s\.\s+citizen(?:ship)?`),
	regexp.MustCompile(`(?i)united\s+states\s+citizen`),
	regexp.MustCompile(`(?i)must\s+be\s+(?:a\s+)?(?:us|u\.s\.)\s+citizen`),
	regexp.MustCompile(`(?i)security\s+clearance\s+required`),
	regexp.MustCompile(`(?i)active\s+(?:security\s+)?clearance`),
	regexp.MustCompile(`(?i)(?:secret|top\s+secret|ts/sci)\s+clearance`),
	regexp.MustCompile(`(?i)able\s+to\s+obtain\s+(?:security\s+)?clearance`),
	regexp.MustCompile(`(?i)must\s+(?:be\s+able\s+to\s+)?(?:obtain|hold|maintain)\s+.*?clearance`),
	regexp.MustCompile(`(?i)(?:no|not|unable\s+to)\s+(?:provide\s+)?(?:visa\s+)?sponsorship`),
	regexp.MustCompile(`(?i)cannot\s+sponsor`),
	regexp.MustCompile(`(?i)must\s+be\s+authorized\s+to\s+work\s+in\s+(?:the\s+)?(?:us|u\.s\.|united\s+states)`),
	regexp.MustCompile(`(?i)without\s+(?:requiring\s+)?(?:visa\s+)?sponsorship`),
}

// locationContext holds the precompiled proximity patterns for one
// non-domestic location. A bare mention is not enough to reject; the
// name has to sit near a location-indicating phrase.
type locationContext struct {
	name     string
	patterns []*regexp.Regexp
}

// Filter rejects postings by raw-text pattern matching before the LLM
// call. Pure function of the content, no I/O.
type Filter struct {
	maxYears  int
	locations []locationContext
}

// New builds a Filter with the given experience ceiling
func New(maxYears int) *Filter {
	locations := make([]locationContext, 0, len(nonDomesticLocations))
	for _, loc := range nonDomesticLocations {
		quoted := regexp.QuoteMeta(loc)
		locations = append(locations, locationContext{
			name: loc,
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:location|based|office|located|position).*?` + quoted),
				regexp.MustCompile(quoted + `.*?(?:office|location|based)`),
				regexp.MustCompile(`in\s+` + quoted),
			},
		})
	}

	return &Filter{
		maxYears:  maxYears,
		locations: locations,
	}
}

// Filter applies the three checks in order, first match wins:
// experience ceiling, non-domestic location, citizenship/clearance.
// Empty content passes.
func (f *Filter) Filter(content string) models.PreFilterResult {
	if content == "" {
		return models.PreFilterResult{Passed: true}
	}

	if result := f.checkExperience(content); !result.Passed {
		return result
	}
	if result := f.checkLocation(content); !result.Passed {
		return result
	}
	if result := f.checkCitizenship(content); !result.Passed {
		return result
	}

	return models.PreFilterResult{Passed: true}
}

// RejectedItem pairs a failed extraction result with the filter verdict
type RejectedItem struct {
	Result  models.ExtractionResult
	Reason  models.FilterReason
	Details string
}

// FilterBatch splits successful extractions into passed and rejected
// sets. Unsuccessful or empty extractions are dropped outright; they
// were already recorded at the extraction stage.
func (f *Filter) FilterBatch(results []models.ExtractionResult) ([]models.ExtractionResult, []RejectedItem) {
	var passed []models.ExtractionResult
	var rejected []RejectedItem

	for _, r := range results {
		if !r.Success || r.Content == "" {
			continue
		}

		verdict := f.Filter(r.Content)
		if verdict.Passed {
			passed = append(passed, r)
		} else {
			rejected = append(rejected, RejectedItem{
				Result:  r,
				Reason:  verdict.Reason,
				Details: verdict.Details,
			})
		}
	}

	utils.GetLogger().WithFields(logrus.Fields{
		"passed":   len(passed),
		"rejected": len(rejected),
	}).Info("Pre-filter complete")

	return passed, rejected
}

// minYears extracts the smallest plausible experience requirement from
// the text, or 0 when none is found.
func (f *Filter) minYears(content string) int {
	min := 0
	for _, pattern := range yoePatterns {
		for _, match := range pattern.FindAllStringSubmatch(content, -1) {
			years, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			if years <= 0 || years >= 50 {
				continue
			}
			if min == 0 || years < min {
				min = years
			}
		}
	}
	return min
}

func (f *Filter) checkExperience(content string) models.PreFilterResult {
	years := f.minYears(content)
	if years > 0 && years > f.maxYears {
		return models.PreFilterResult{
			Passed:  false,
			Reason:  models.ReasonExperienceExceeded,
			Details: fmt.Sprintf("Requires %d+ years (max: %d)", years, f.maxYears),
		}
	}
	return models.PreFilterResult{Passed: true}
}

func (f *Filter) checkLocation(content string) models.PreFilterResult {
	lower := strings.ToLower(content)
	for _, loc := range f.locations {
		if !strings.Contains(lower, loc.name) {
			continue
		}
		for _, pattern := range loc.patterns {
			if pattern.MatchString(lower) {
				return models.PreFilterResult{
					Passed:  false,
					Reason:  models.ReasonNonDomesticLocation,
					Details: fmt.Sprintf("Location: %s", loc.name),
				}
			}
		}
	}
	return models.PreFilterResult{Passed: true}
}

func (f *Filter) checkCitizenship(content string) models.PreFilterResult {
	lower := strings.ToLower(content)
	for _, pattern := range citizenshipPatterns {
		if match := pattern.FindString(lower); match != "" {
			return models.PreFilterResult{
				Passed:  false,
				Reason:  models.ReasonCitizenshipRequired,
				Details: fmt.Sprintf("Matched: %q", match),
			}
		}
	}
	return models.PreFilterResult{Passed: true}
}
