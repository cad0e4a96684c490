package advisor

import "github.com/repopilot/repo-pilot/internal/domain"

const specificationPrompt = `You are a senior technical writer. Given a repository's structure and code, produce a comprehensive SPECIFICATION.md document. Include:
- Project overview and purpose
- Functional requirements (table with IDs)
- Data models and schemas
- API contracts (endpoints, request/response)
- Component behaviors and responsibilities
- Guardrails and safety rules
- Acceptance criteria
Use proper markdown formatting with tables, headers, and code blocks.`

const graphPrompt = `You are a software architect. Given a repository's code, produce a GRAPH.md document that shows the system's relationships using Mermaid diagrams. Include:
- Component dependency graph (which modules import which)
- Data flow diagram (how data moves through the system)
- Component interaction sequence diagram
- API request flow diagram
Use ` + "```mermaid" + ` code blocks for all diagrams. Add explanatory text between diagrams.`

const architecturePrompt = `You are a principal engineer. Given a repository's code, produce an ARCHITECTURE.md document. Include:
- System overview and layer diagram (ASCII art)
- Component descriptions and responsibilities
- Concurrency strategy
- Data layer design
- External dependencies and integration points
- Security considerations
- Scalability path
- Error handling strategy
Use proper markdown with tables, code blocks, and ASCII diagrams.`

// categoryPrompts steers the suggestion pass per improvement category
var categoryPrompts = map[domain.ImprovementCategory]string{
	domain.CategoryFeatures: "Suggest improvements to make this codebase more feature-rich and useful. " +
		"Consider: better error handling, new API endpoints, improved data models, " +
		"caching, pagination, filtering, webhook support, retry logic, better logging, " +
		"configuration flexibility, and user experience improvements.",
	domain.CategorySecurity: "Suggest security improvements for this codebase. Consider: " +
		"input validation and sanitization, rate limiting, authentication/authorization, " +
		"API key rotation, secrets management, CORS hardening, request size limits, " +
		"dependency vulnerability scanning, SQL injection prevention, XSS prevention, " +
		"secure headers, and audit logging.",
	domain.CategoryCompliance: "Suggest regulatory compliance improvements for this codebase. Consider: " +
		"handling of personal and sensitive data (protection, access controls, audit trails), " +
		"payment data requirements where applicable, records retention policies, " +
		"consent management, and accessibility (ADA/WCAG).",
	domain.CategoryIntegration: "Suggest ecosystem integration improvements for this codebase. Consider: " +
		"OpenTelemetry/observability, structured logging (JSON), health check depth, " +
		"Docker containerization, CI/CD pipeline config, message queue integration, " +
		"database migration support, API versioning, OpenAPI schema improvements, " +
		"webhook callbacks, and event-driven patterns.",
}

// groupPrompts steers the test generation pass per test group
var groupPrompts = map[domain.ImprovementCategory]string{
	domain.CategoryFeatures: "Generate test cases that verify feature correctness: " +
		"API endpoints return expected responses, core functions produce valid output, " +
		"data layer functions return correct data, edge cases are handled, " +
		"and the pipeline produces complete results.",
	domain.CategorySecurity: "Generate test cases for security: " +
		"input validation rejects malicious input, secrets are not exposed in responses, " +
		"rate limiting headers are present, CORS is properly configured, " +
		"sensitive data is not leaked in error messages, and authentication is enforced.",
	domain.CategoryCompliance: "Generate test cases for regulatory compliance: " +
		"personal data is not exposed in API responses, audit logging captures access events, " +
		"protected operations require authorization, and data retention rules are followed.",
	domain.CategoryIntegration: "Generate test cases for ecosystem integration: " +
		"health endpoint returns proper status, API schema is valid, " +
		"structured logging produces parseable output, error responses follow RFC 7807, " +
		"API versioning headers are present, and webhook callbacks fire correctly.",
}
