// Package score computes the weighted, capped score of a build result from the
// exercise's test case configuration. Compute is a pure function with no I/O so
// it can also back preview/what-if calls.
package score

import (
	"fmt"
	"strings"

	"github.com/noah-isme/gradia-go-api/internal/models"
)

// Category state for static code analysis categories. Only graded categories
// contribute to the penalty.
const (
	CategoryGraded   = "GRADED"
	CategoryFeedback = "FEEDBACK"
	CategoryInactive = "INACTIVE"
)

// AnalysisCategory is the penalty configuration of one static analysis category.
type AnalysisCategory struct {
	Name       string
	State      string
	Penalty    float64
	MaxPenalty *float64
}

// Config carries the exercise scoring configuration relevant for one computation.
type Config struct {
	MaxScore                  float64
	MaxBonusPoints            float64
	StaticCodeAnalysisEnabled bool
	// MaxStaticCodeAnalysisPenalty is a percentage of MaxScore; nil means 100.
	MaxStaticCodeAnalysisPenalty *float64
	Categories                   []AnalysisCategory
	// ManualResult switches the result string into the assessed form with a
	// point summary over all feedback credits.
	ManualResult bool
}

// Outcome is the computed grading of one result.
type Outcome struct {
	Score          int
	ResultString   string
	Successful     bool
	Feedbacks      []models.Feedback
	DuplicateTests []string
}

// Compute grades the given feedback against the exercise's test cases.
// includeAfterDueDate controls whether AFTER_DUE_DATE test cases count; tests
// with visibility NEVER are always excluded. Inactive test cases never count.
func Compute(testCases []models.TestCase, feedbacks []models.Feedback, cfg Config, includeAfterDueDate bool) Outcome {
	filtered := filterTestCases(testCases, includeAfterDueDate)

	testFeedback, scaFeedback, manualFeedback := splitFeedback(feedbacks)
	scaFeedback = retainGradedCategories(scaFeedback, cfg)

	if duplicates := duplicateTestNames(testFeedback); len(duplicates) > 0 {
		return duplicateOutcome(duplicates, testFeedback, scaFeedback, manualFeedback)
	}

	// Drop automatic feedback that belongs to no known test case or to a test
	// case excluded by the visibility filter.
	testFeedback = retainFeedbackWithTestCase(testFeedback, filtered)

	byName := make(map[string]models.Feedback, len(testFeedback))
	for _, feedback := range testFeedback {
		byName[strings.ToLower(feedback.Text)] = feedback
	}

	var totalWeight float64
	for _, testCase := range filtered {
		totalWeight += testCase.Weight
	}

	passedCount := 0
	failedCount := 0
	var weightedPassed, bonusFromTests float64
	notExecuted := make([]models.Feedback, 0)

	for i := range filtered {
		testCase := filtered[i]
		feedback, executed := byName[strings.ToLower(testCase.Name)]
		switch {
		case executed && feedback.IsPositive():
			passedCount++
			weightedPassed += testCase.Weight * testCase.BonusMultiplier
			bonusFromTests += testCase.BonusPoints
		case executed:
			failedCount++
		default:
			failedCount++
			negative := false
			notExecuted = append(notExecuted, models.Feedback{
				Type:       models.FeedbackAutomatic,
				Text:       testCase.Name,
				DetailText: "Test was not executed.",
				Positive:   &negative,
				Visibility: testCase.Visibility,
			})
		}
	}

	points := 0.0
	if totalWeight > 0 {
		points = weightedPassed / totalWeight * cfg.MaxScore
	}
	points += bonusFromTests

	// Credits on passed feedback reflect the per-test point share.
	testFeedback = assignCredits(testFeedback, filtered, totalWeight, cfg.MaxScore)

	maxPoints := cfg.MaxScore + cfg.MaxBonusPoints
	if points > maxPoints {
		points = maxPoints
	}

	if cfg.StaticCodeAnalysisEnabled {
		scaFeedback, points = applyAnalysisPenalty(scaFeedback, points, cfg)
	}
	if points < 0 {
		points = 0
	}

	// Truncation, not rounding: 66.9% stays 66. The epsilon guards against
	// float representation pushing an exact boundary just below the integer.
	scoreValue := 0
	if cfg.MaxScore > 0 {
		scoreValue = int(points/cfg.MaxScore*100 + 1e-9)
	}

	ordered := make([]models.Feedback, 0, len(manualFeedback)+len(testFeedback)+len(notExecuted)+len(scaFeedback))
	ordered = append(ordered, manualFeedback...)
	ordered = append(ordered, testFeedback...)
	ordered = append(ordered, notExecuted...)
	ordered = append(ordered, scaFeedback...)

	resultString := fmt.Sprintf("%d of %d passed", passedCount, len(filtered))
	if cfg.StaticCodeAnalysisEnabled {
		resultString += issueSuffix(len(scaFeedback))
	}
	if cfg.ManualResult {
		resultString += pointSuffix(ordered, cfg)
	}

	return Outcome{
		Score:        scoreValue,
		ResultString: resultString,
		Successful:   len(filtered) > 0 && failedCount == 0,
		Feedbacks:    ordered,
	}
}

func filterTestCases(testCases []models.TestCase, includeAfterDueDate bool) []models.TestCase {
	filtered := make([]models.TestCase, 0, len(testCases))
	for _, testCase := range testCases {
		if !testCase.Active || testCase.IsInvisible() {
			continue
		}
		if !includeAfterDueDate && testCase.IsAfterDueDate() {
			continue
		}
		filtered = append(filtered, testCase)
	}
	return filtered
}

func splitFeedback(feedbacks []models.Feedback) (test, sca, manual []models.Feedback) {
	for _, feedback := range feedbacks {
		switch {
		case feedback.Type != models.FeedbackAutomatic:
			manual = append(manual, feedback)
		case feedback.IsStaticCodeAnalysis():
			sca = append(sca, feedback)
		default:
			test = append(test, feedback)
		}
	}
	return test, sca, manual
}

func retainGradedCategories(scaFeedback []models.Feedback, cfg Config) []models.Feedback {
	if !cfg.StaticCodeAnalysisEnabled {
		return nil
	}
	states := make(map[string]string, len(cfg.Categories))
	for _, category := range cfg.Categories {
		states[category.Name] = category.State
	}
	retained := make([]models.Feedback, 0, len(scaFeedback))
	for _, feedback := range scaFeedback {
		state, known := states[feedback.StaticCodeAnalysisCategory]
		if !known || state == CategoryInactive {
			continue
		}
		retained = append(retained, feedback)
	}
	return retained
}

func duplicateTestNames(testFeedback []models.Feedback) []string {
	seen := make(map[string]bool, len(testFeedback))
	duplicates := make([]string, 0)
	flagged := make(map[string]bool)
	for _, feedback := range testFeedback {
		name := strings.ToLower(feedback.Text)
		if seen[name] && !flagged[name] {
			flagged[name] = true
			duplicates = append(duplicates, feedback.Text)
		}
		seen[name] = true
	}
	return duplicates
}

func duplicateOutcome(duplicates []string, testFeedback, scaFeedback, manualFeedback []models.Feedback) Outcome {
	ordered := make([]models.Feedback, 0, len(manualFeedback)+len(testFeedback)+len(scaFeedback)+len(duplicates))
	ordered = append(ordered, manualFeedback...)
	ordered = append(ordered, testFeedback...)
	ordered = append(ordered, scaFeedback...)
	for _, name := range duplicates {
		negative := false
		ordered = append(ordered, models.Feedback{
			Type:       models.FeedbackAutomatic,
			Text:       name + " - Duplicate Test Case!",
			DetailText: "This is a duplicate test case. Please review all your test cases and verify that your test cases have unique names!",
			Positive:   &negative,
		})
	}
	return Outcome{
		Score:          0,
		ResultString:   "Error: Found duplicated tests!",
		Successful:     false,
		Feedbacks:      ordered,
		DuplicateTests: duplicates,
	}
}

func retainFeedbackWithTestCase(testFeedback []models.Feedback, testCases []models.TestCase) []models.Feedback {
	known := make(map[string]bool, len(testCases))
	for _, testCase := range testCases {
		known[strings.ToLower(testCase.Name)] = true
	}
	retained := make([]models.Feedback, 0, len(testFeedback))
	for _, feedback := range testFeedback {
		if known[strings.ToLower(feedback.Text)] {
			retained = append(retained, feedback)
		}
	}
	return retained
}

func assignCredits(testFeedback []models.Feedback, testCases []models.TestCase, totalWeight, maxScore float64) []models.Feedback {
	if totalWeight <= 0 {
		return testFeedback
	}
	byName := make(map[string]models.TestCase, len(testCases))
	for _, testCase := range testCases {
		byName[strings.ToLower(testCase.Name)] = testCase
	}
	for i := range testFeedback {
		testCase, ok := byName[strings.ToLower(testFeedback[i].Text)]
		if !ok || !testFeedback[i].IsPositive() {
			continue
		}
		credits := testCase.Weight*testCase.BonusMultiplier/totalWeight*maxScore + testCase.BonusPoints
		testFeedback[i].Credits = &credits
		testFeedback[i].Visibility = testCase.Visibility
	}
	return testFeedback
}

func applyAnalysisPenalty(scaFeedback []models.Feedback, points float64, cfg Config) ([]models.Feedback, float64) {
	byCategory := make(map[string][]int)
	for i, feedback := range scaFeedback {
		byCategory[feedback.StaticCodeAnalysisCategory] = append(byCategory[feedback.StaticCodeAnalysisCategory], i)
	}

	var totalPenalty float64
	for _, category := range cfg.Categories {
		if category.State != CategoryGraded {
			continue
		}
		indexes := byCategory[category.Name]
		if len(indexes) == 0 {
			continue
		}
		penalty := float64(len(indexes)) * category.Penalty
		if category.MaxPenalty != nil && penalty > *category.MaxPenalty {
			penalty = *category.MaxPenalty
		}
		perFeedback := penalty / float64(len(indexes))
		for _, i := range indexes {
			credits := -perFeedback
			scaFeedback[i].Credits = &credits
		}
		totalPenalty += penalty
	}

	maxPenaltyPercent := 100.0
	if cfg.MaxStaticCodeAnalysisPenalty != nil {
		maxPenaltyPercent = *cfg.MaxStaticCodeAnalysisPenalty
	}
	maxPenaltyPoints := maxPenaltyPercent / 100 * cfg.MaxScore
	if totalPenalty > maxPenaltyPoints {
		totalPenalty = maxPenaltyPoints
	}

	return scaFeedback, points - totalPenalty
}

func issueSuffix(issues int) string {
	if issues == 1 {
		return ", 1 issue"
	}
	return fmt.Sprintf(", %d issues", issues)
}

func pointSuffix(feedbacks []models.Feedback, cfg Config) string {
	var points float64
	for _, feedback := range feedbacks {
		if feedback.Credits != nil {
			points += *feedback.Credits
		}
	}
	maxPoints := cfg.MaxScore + cfg.MaxBonusPoints
	if points > maxPoints {
		points = maxPoints
	}
	if points < 0 {
		points = 0
	}
	return fmt.Sprintf(", %.1f of %g points", points, cfg.MaxScore)
}
