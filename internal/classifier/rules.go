package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"jobinsights/internal/domain"
)

// patternSpec is one (regex, reasoning) rule. Patterns are compiled
// case-insensitively and matched anywhere in the combined error text.
type patternSpec struct {
	pattern   string
	reasoning string
}

// Rules are declared per category in priority order within each list.
// Input-data and third-party failures are checked before workflow-engine
// ones: they are the actionable categories for a pipeline operator, so
// they preempt the generic "the runtime broke" matches.

var inputDataPatterns = []patternSpec{
	// Validation errors
	{`validation.*fail`, "Validation failure"},
	{`missing.*field`, "Missing required field"},
	{`required.*field`, "Required field not provided"},
	{`invalid.*format`, "Invalid data format"},
	{`schema.*mismatch`, "Schema mismatch"},
	// Data issues
	{`dataframe.*empty`, "Empty dataframe input"},
	{`no.*data.*found`, "No data found"},
	{`null.*value`, "Null value in required field"},
	{`empty.*input`, "Empty input"},
	{`empty.*result`, "Empty result set"},
	// S3/file not found (missing input data)
	{`headobject.*not found`, "Input file not found in S3"},
	{`404.*headobject`, "Input file missing (S3 404)"},
	// DataFrame/column errors
	{`dataframe.*must.*have.*column`, "Missing required DataFrame column"},
	{`column.*not.*found`, "Column not found in DataFrame"},
	// Type errors
	{`type.*error.*expected`, "Type mismatch"},
	{`parse.*error`, "Data parsing error"},
	{`invalid.*input`, "Invalid input data"},
	{`conversion.*error`, "Data conversion error"},
	// Custom exceptions
	{`RequiredInputError`, "Required input missing"},
	{`MultipleInputError`, "Multiple input error"},
	{`DatasetException`, "Dataset exception"},
}

var thirdPartyPatterns = []patternSpec{
	// Provider-specific
	{`xledger`, "Xledger API error"},
	{`visma`, "Visma API error"},
	{`agrando`, "Agrando API error"},
	{`adra`, "Adra API error"},
	{`giantleap`, "GiantLeap API error"},
	// Protocol errors
	{`soap.*error`, "SOAP service error"},
	{`graphql.*error`, "GraphQL API error"},
	{`rest.*error`, "REST API error"},
	// HTTP errors
	{`http.*[4-5]\d{2}`, "HTTP error response"},
	{`status.*code.*[4-5]\d{2}`, "HTTP status code error"},
	{`status_code.*[4-5]\d{2}`, "HTTP status code error"},
	// Connection issues
	{`connection.*refused`, "Connection refused"},
	{`connection.*timeout`, "Connection timeout"},
	{`read.*timeout`, "Read timeout"},
	{`timeout.*exceeded`, "Timeout exceeded"},
	{`connect.*timeout`, "Connection timeout"},
	// Auth issues
	{`authentication.*fail`, "Authentication failure"},
	{`unauthorized`, "Unauthorized access"},
	{`forbidden`, "Forbidden access"},
	{`invalid.*credentials`, "Invalid credentials"},
	{`token.*expired`, "Token expired"},
	// Generic external
	{`api.*error`, "API error"},
	{`external.*service`, "External service error"},
	{`ClientError`, "AWS/External client error"},
	{`botocore.*exception`, "AWS service error"},
	// Rate limiting
	{`rate.*limit`, "Rate limit exceeded"},
	{`quota.*exceeded`, "Quota exceeded"},
	{`too.*many.*requests`, "Too many requests"},
	{`throttl`, "Request throttled"},
	// Service availability
	{`service.*unavailable`, "Service unavailable"},
	{`bad.*gateway`, "Bad gateway"},
	{`gateway.*timeout`, "Gateway timeout"},
	// Custom exceptions
	{`ConcurrentRequestException`, "Concurrent request limit"},
	{`InvalidQueryException`, "Invalid external query"},
	{`GraphQLException`, "GraphQL exception"},
	{`IOException`, "IO exception"},
}

var workflowEnginePatterns = []patternSpec{
	// Activity errors
	{`activity.*not.*found`, "Activity not found"},
	{`ActivityNotFoundError`, "Activity not found"},
	{`InvalidActivityError`, "Invalid activity configuration"},
	{`invalid.*activity`, "Invalid activity"},
	{`an error occurred while running the activity`, "Activity execution error"},
	// Pipeline errors
	{`pipeline.*exception`, "Pipeline exception"},
	{`PipelineException`, "Pipeline exception"},
	{`PipelineRunTimeoutException`, "Pipeline timeout"},
	{`pipeline.*timeout`, "Pipeline timeout"},
	// Context errors
	{`context.*not.*found`, "Context not found"},
	{`ContextNotFoundException`, "Context not found"},
	// Dependency errors
	{`upstream.*fail`, "Upstream activity failed"},
	{`ActivityUpstreamFailedError`, "Upstream failed"},
	{`circular.*dependency`, "Circular dependency"},
	{`dag.*error`, "DAG construction error"},
	{`dependency.*error`, "Dependency error"},
	// Condition errors
	{`condition.*not.*met`, "Run condition not met"},
	{`skip.*condition`, "Skip condition triggered"},
	// Plugin errors
	{`plugin.*error`, "Plugin error"},
	{`PluginException`, "Plugin exception"},
	{`builtin.*error`, "Builtin error"},
	{`BuiltinsException`, "Builtins exception"},
	// Internal errors
	{`internal.*server.*error`, "Internal server error"},
	{`unexpected.*error`, "Unexpected error"},
	// KeyError in activity execution (common workflow engine issue)
	{`KeyError.*not in index`, "Missing key in activity data"},
}

type compiledPattern struct {
	re        *regexp.Regexp
	reasoning string
}

type ruleGroup struct {
	category domain.FailureCategory
	patterns []compiledPattern
}

// RuleMatcher applies the rule table to error text, first match wins.
// It is a pure function of (text, code, rule table): no side effects,
// and "no match" is a valid outcome, not an error.
type RuleMatcher struct {
	groups []ruleGroup
}

// NewRuleMatcher compiles the built-in rule table.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{groups: []ruleGroup{
		compileGroup(domain.InputDataQuality, inputDataPatterns),
		compileGroup(domain.ThirdPartySystem, thirdPartyPatterns),
		compileGroup(domain.WorkflowEngine, workflowEnginePatterns),
	}}
}

func compileGroup(category domain.FailureCategory, specs []patternSpec) ruleGroup {
	group := ruleGroup{category: category, patterns: make([]compiledPattern, 0, len(specs))}
	for _, spec := range specs {
		group.patterns = append(group.patterns, compiledPattern{
			re:        regexp.MustCompile(`(?i)` + spec.pattern),
			reasoning: spec.reasoning,
		})
	}
	return group
}

// Match evaluates the category groups in priority order, then falls back
// to the HTTP status heuristic: a 4xx code with no matching pattern is
// treated as an input-data problem.
func (m *RuleMatcher) Match(text string, code int) (domain.FailureCategory, string, bool) {
	for _, group := range m.groups {
		for _, p := range group.patterns {
			if p.re.MatchString(text) {
				return group.category, p.reasoning, true
			}
		}
	}

	if code >= 400 && code < 500 {
		return domain.InputDataQuality, fmt.Sprintf("HTTP %d client error", code), true
	}

	return domain.CategoryUnknown, "", false
}

// MatchError synthesizes the combined match text from an error record
// and runs Match against it.
func (m *RuleMatcher) MatchError(rec domain.ErrorRecord) (domain.FailureCategory, string, bool) {
	return m.Match(combinedText(rec), int(rec.Code))
}

func combinedText(rec domain.ErrorRecord) string {
	return strings.Join([]string{rec.Message, rec.Exception, rec.DetailsJSON()}, " ")
}
