package instructions

// builtinTemplates maps template filename to content. The completion
// markers these templates instruct workers to print are the wire
// protocol the classifier matches on; keep them in sync with the
// signal package.
var builtinTemplates = map[string]string{
	"backend_dev.md":     backendDevTemplate,
	"frontend_dev.md":    frontendDevTemplate,
	"backend_review.md":  backendReviewTemplate,
	"frontend_review.md": frontendReviewTemplate,
	"qa.md":              qaTemplate,
}

const backendDevTemplate = `# Backend Implementation: {{feature_title}}

## Feature {{feature_id}}
{{feature_description}}

{{#if acceptance_criteria}}
## Acceptance Criteria
{{acceptance_criteria}}
{{/if}}
{{#if prior_issues}}
## Issues From the Last Review
Fix every one of these before declaring completion:
{{prior_issues}}
{{/if}}

## Instructions
1. Read the relevant backend code to understand the current state
2. Implement the backend portion of the feature described above
3. Write or update tests for your changes and run them
4. Commit all changes when done

## Completion
When you are done, print exactly one of these markers on its own line:
- DEV_COMPLETE — backend work is implemented and committed
- DEV_NO_WORK — this feature needs no backend changes
`

const frontendDevTemplate = `# Frontend Implementation: {{feature_title}}

## Feature {{feature_id}}
{{feature_description}}

{{#if acceptance_criteria}}
## Acceptance Criteria
{{acceptance_criteria}}
{{/if}}
{{#if prior_issues}}
## Issues From the Last Review
Fix every one of these before declaring completion:
{{prior_issues}}
{{/if}}

## Instructions
1. Read the relevant frontend code to understand the current state
2. Implement the frontend portion of the feature described above
3. Write or update tests for your changes and run them
4. Commit all changes when done

## Completion
When you are done, print exactly one of these markers on its own line:
- DEV_COMPLETE — frontend work is implemented and committed
- DEV_NO_WORK — this feature needs no frontend changes
`

const backendReviewTemplate = `# Backend Review: {{feature_title}}

## Feature {{feature_id}}
{{feature_description}}

{{#if acceptance_criteria}}
## Acceptance Criteria
{{acceptance_criteria}}
{{/if}}

## Review Standing
This feature has been through {{cycle_count}} failed cycle(s); the
configured ceiling is {{cycle_limit}}.
{{#if max_cycles_reached}}
The ceiling has been reached. You may approve despite remaining minor
findings by printing REVIEW_PASSED_MAX_CYCLES.
{{/if}}

## Instructions
1. Review the committed backend changes for this feature
2. Judge correctness against the feature description and acceptance criteria
3. For each finding, print a line: ISSUE: <description>

## Completion
Print exactly one of these markers on its own line:
- REVIEW_PASSED — the backend work is acceptable
- REVIEW_PASSED_NO_WORK — there were no backend changes to review
- REVIEW_FAILED — findings must be fixed (list each as an ISSUE: line)
{{#if max_cycles_reached}}
- REVIEW_PASSED_MAX_CYCLES — approving because the cycle ceiling is reached
{{/if}}
`

const frontendReviewTemplate = `# Frontend Review: {{feature_title}}

## Feature {{feature_id}}
{{feature_description}}

{{#if acceptance_criteria}}
## Acceptance Criteria
{{acceptance_criteria}}
{{/if}}

## Review Standing
This feature has been through {{cycle_count}} failed cycle(s); the
configured ceiling is {{cycle_limit}}.
{{#if max_cycles_reached}}
The ceiling has been reached. You may approve despite remaining minor
findings by printing REVIEW_PASSED_MAX_CYCLES.
{{/if}}

## Instructions
1. Review the committed frontend changes for this feature
2. Judge correctness against the feature description and acceptance criteria
3. For each finding, print a line: ISSUE: <description>

## Completion
Print exactly one of these markers on its own line:
- REVIEW_PASSED — the frontend work is acceptable
- REVIEW_PASSED_NO_WORK — there were no frontend changes to review
- REVIEW_FAILED — findings must be fixed (list each as an ISSUE: line)
{{#if max_cycles_reached}}
- REVIEW_PASSED_MAX_CYCLES — approving because the cycle ceiling is reached
{{/if}}
`

const qaTemplate = `# QA Testing: {{feature_title}}

## Feature {{feature_id}}
{{feature_description}}

{{#if acceptance_criteria}}
## Acceptance Criteria
{{acceptance_criteria}}
{{/if}}
{{#if prior_issues}}
## Previously Reported Issues
Verify each of these has been addressed:
{{prior_issues}}
{{/if}}

## QA Standing
This feature has been through {{cycle_count}} failed cycle(s); the
configured ceiling is {{cycle_limit}}.
{{#if max_cycles_reached}}
The ceiling has been reached. You may pass despite remaining minor
findings by printing QA_PASSED_MAX_CYCLES.
{{/if}}

## Instructions
1. Exercise the feature end to end against its acceptance criteria
2. For each failure, print a line: ISSUE: <description>
3. Decide whether remaining failures are backend or frontend work

## Completion
Print exactly one of these markers on its own line:
- QA_COMPLETE — the feature passes QA
- QA_NO_TESTING — nothing about this feature is testable
- QA_ISSUES_BACKEND — failures require backend fixes (list each as an ISSUE: line)
- QA_ISSUES_FRONTEND — failures require frontend fixes (list each as an ISSUE: line)
{{#if max_cycles_reached}}
- QA_PASSED_MAX_CYCLES — passing because the cycle ceiling is reached
{{/if}}
`
