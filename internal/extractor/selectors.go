package extractor

// jobSelectors is the probe order for locating the posting body in a
// rendered page, most specific containers first with generic fallbacks
// at the end.
var jobSelectors = []string{
	`[data-testid="job-description"]`,
	`[data-testid="posting-description"]`,
	".job-description",
	".posting-description",
	".job-content",
	".content-wrapper",
	".job-details",
	"#job-description",
	"#job-content",
	"article.job",
	"article",
	"main",
	".main-content",
	"body",
}
