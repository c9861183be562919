package composer

import "github.com/docweaver/docweaver-go/internal/rag"

// architectureContext is the extended briefing for the System Architecture
// section. It asks for a Mermaid diagram, a component table, and a layered
// explanation, all under the citation contract.
const architectureContext = `You are writing the System Architecture section for a technical project.

You will be given retrieved repository content covering architecture notes, component descriptions, configuration files, and dependency manifests.

Output format (only include what is available or inferred):

1. System Architecture Diagram (Mermaid)
   - Use a fenced mermaid block with flowchart TD or graph LR.
   - Show the flow of the main application.
   - Title the diagram "Inferred from the code".
   - Mark missing elements as (Information not available in repository).

2. Key Components Table
   - Columns: Component | Responsibility | Technology | Evidence
   - Name the concrete packages, frameworks, and modules in the Technology column.
   - Include only components that actually appear in the repository.

3. Detailed Explanation
   - Walk through each step of the system technically. Name the techniques in use (e.g. retrieval-augmented generation, caching, batching) when the repository shows them.
   - Explain the important functions and entry points.
   - Describe the data the system reads and writes, with a sample only if one is present in the repository.

4. Deployment View
   - Local development, and any staging or production topology the repository documents.

5. Trade-offs & Assumptions
   - Key design choices with their consequences, and the boundaries the repository states.

Mark every inferred or missing item per the citation rules.`

// technologiesGuidance asks for a grouped inventory rather than prose.
const technologiesGuidance = `List the technologies grouped by kind, for example:
Languages: Go, Python
Frameworks: Flask, React
Packages: NumPy, Pandas
Cite the manifest or source file that evidences each group.`

// apiReferenceGuidance is the strict-citation briefing for the API Reference
// section.
const apiReferenceGuidance = `Write a deep, exact section:
1) Base URL and API version (if present).
2) Auth scheme (key/header/bearer) and rate limits if any.
3) Endpoints table: Method | Path | Summary | Request | Response | Source tag.
4) Environment variables table: NAME | Purpose | Where read | Default or example if visible.
5) Example curl for one or two key endpoints.
Apply the strict citation rules: every sentence must end with a single allowed tag. If info is missing, write (Information not available in repository). Do NOT invent endpoints or env vars.`

// StockSections returns the standard five documentation sections with their
// retrieval queries, per-partition k budgets, and guidance. generate --all
// runs them in this order.
func StockSections() []rag.SectionSpec {
	return []rag.SectionSpec{
		{
			Name:     "Objective & Scope",
			Query:    "Project goals/objectives and scope or limitations as described in README and docstrings.",
			Route:    rag.RouteBoth,
			KText:    12,
			KCode:    8,
			Guidance: "Include '### Goals' bullets and '### Out of Scope' bullets.",
		},
		{
			Name:              "System Architecture",
			Query:             "Architecture overview of the project: high-level system architecture and component responsibilities",
			Route:             rag.RouteBoth,
			KText:             10,
			KCode:             20,
			Guidance:          "Cover the big picture and the component-level detail.",
			AdditionalContext: architectureContext,
		},
		{
			Name:     "Technologies Used",
			Query:    "Installation prerequisites and versions",
			Route:    rag.RouteBoth,
			KText:    5,
			KCode:    5,
			Guidance: technologiesGuidance,
		},
		{
			Name:     "Installation & Setup",
			Query:    "Installation prerequisites, environment variables and versions",
			Route:    rag.RouteBoth,
			KText:    6,
			KCode:    6,
			Guidance: "Write a step by step guide for installation and setup.",
		},
		{
			Name: "API Reference",
			Query: "API endpoints, HTTP routes, handler registrations, " +
				"openapi swagger schema path operation request response status code, " +
				"environment variables, configuration files, .env settings",
			Route:    rag.RouteBoth,
			KText:    6,
			KCode:    6,
			Guidance: apiReferenceGuidance,
		},
	}
}

// FindStockSection returns the stock section whose name or slug matches name.
func FindStockSection(name string) (rag.SectionSpec, bool) {
	want := Slug(name)
	for _, s := range StockSections() {
		if s.Name == name || Slug(s.Name) == want {
			return s, true
		}
	}
	return rag.SectionSpec{}, false
}
