package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/hiring-pipeline/internal/core/domain"
)

func buildMatchPrompt(profile *domain.CandidateProfile, job *domain.Job) string {
	const maxSnippet = 4000
	summary := profile.Summary
	if len(summary) > maxSnippet {
		summary = summary[:maxSnippet]
	}
	description := job.Description
	if len(description) > maxSnippet {
		description = description[:maxSnippet]
	}

	return fmt.Sprintf(`You are a recruiting assistant scoring a candidate against a job posting.
Weigh the signals as: skills overlap 40%%, experience alignment 30%%, preference match 20%%, career trajectory 10%%.
Return strict JSON object with keys:
score (number from 0 to 100), recommendation (one of: strong_match, potential_match, weak_match, no_match),
strengths (array of strings), gaps (array of strings), reason (string).
No markdown, no extra keys.

Job title: %s
Experience level: %s
Required skills: %s
Job description:
%s

Candidate: %s
Years of experience: %d
Skills: %s
Preferences: %s
Candidate summary:
%s
`,
		job.Title,
		job.ExperienceLevel,
		strings.Join(job.RequiredSkills, ", "),
		description,
		profile.FullName,
		profile.YearsExperience,
		strings.Join(profile.Skills, ", "),
		strings.Join(profile.Preferences, ", "),
		summary,
	)
}
