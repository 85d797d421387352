package agent

import (
	"log"

	"github.com/mohammad-safakhou/wayfarer/tools"
)

// Role names used across the orchestrator.
const (
	RoleResearcher      = "researcher"
	RoleTravelLogistics = "travel_logistics"
	RoleReporter        = "reporter"
)

const reactFormat = "You must strictly follow this format when reasoning:\n" +
	"1. Start with 'Thought: ' followed by a single reasoning step\n" +
	"2. Then write 'Action: ' followed by exactly one tool name\n" +
	"3. Then write 'Action Input: ' followed by a JSON object with the input parameters for that tool\n" +
	"4. Wait for the observation before taking another step\n" +
	"5. Never chain multiple thoughts together without taking an action in between\n" +
	"6. After observations, start a new thought\n" +
	"7. When you have all the information, provide your final answer after a 'Final Answer: ' marker"

const researcherPrompt = "You are a Web Research Agent. Your goal is to research destinations and find relevant images. " +
	"You are diligent, thorough, comprehensive, and visual-focused. " +
	"Always provide detailed information and relevant images when available.\n\n" +
	"IMPORTANT: You have the ability to browse webpages using the browse_webpage tool. " +
	"After finding URLs with serper_search, you should use browse_webpage to visit those URLs " +
	"and extract detailed information. Don't just rely on search snippets. " +
	"Embed images as markdown image references with captions.\n\n" + reactFormat

const travelLogisticsPrompt = "You are a Travel Agent. Your goal is to assist travelers with their queries. " +
	"You are friendly, hardworking, and detailed in reporting back to users. " +
	"Provide specific and actionable information about flights, weather, and travel logistics.\n\n" +
	"IMPORTANT: You have access to tools that can search for flights, check weather information, " +
	"perform web searches, and browse webpages. After finding URLs with serper_search, " +
	"you should use browse_webpage to visit those URLs and extract detailed information " +
	"such as hotel prices, tour details, local transportation options, and more. " +
	"Always verify information with multiple sources when possible.\n\n" + reactFormat

const reporterPrompt = "You are a Travel Report Agent. Your goal is to write comprehensive travel reports with visual elements. " +
	"You are friendly, hardworking, visual-oriented, and detailed in reporting. " +
	"Create well-structured, informative, and visually appealing travel reports.\n\n" +
	"IMPORTANT: Your primary task is to compile information from various sources into a cohesive, " +
	"engaging travel report. You must preserve all formatting, especially image URLs and markdown " +
	"elements, exactly as given. Organize information logically with clear section headings and " +
	"maintain a consistent style throughout the document.\n\n" +
	"When you have analyzed all the information, provide your final report after a 'Final Answer: ' marker."

// Toolset is the full set of adapters available to the role factories.
type Toolset struct {
	WebSearch    tools.Tool
	WikiArticles tools.Tool
	WikiImages   tools.Tool
	Browse       tools.Tool
	Weather      tools.Tool
	Flights      tools.Tool
}

// Roles bundles the three agents of one planning session. They share the
// provider but own independent memories.
type Roles struct {
	Researcher      *Agent
	TravelLogistics *Agent
	Reporter        *Agent
}

// NewRoles constructs fresh role instances. The orchestrator calls this once
// per planning session so conversational memory never leaks across sessions.
func NewRoles(llm Provider, ts Toolset, logger *log.Logger) *Roles {
	return &Roles{
		Researcher: New(Role{
			Name:          RoleResearcher,
			SystemPrompt:  researcherPrompt,
			Tools:         tools.NewRegistry(ts.WebSearch, ts.WikiArticles, ts.WikiImages, ts.Browse),
			MemoryBudget:  3000,
			MaxIterations: 50,
		}, llm, logger),
		TravelLogistics: New(Role{
			Name:          RoleTravelLogistics,
			SystemPrompt:  travelLogisticsPrompt,
			Tools:         tools.NewRegistry(ts.Flights, ts.Weather, ts.WebSearch, ts.Browse),
			MemoryBudget:  3000,
			MaxIterations: 30,
		}, llm, logger),
		Reporter: New(Role{
			Name:          RoleReporter,
			SystemPrompt:  reporterPrompt,
			Tools:         tools.NewRegistry(),
			MemoryBudget:  4000,
			MaxIterations: 20,
		}, llm, logger),
	}
}
