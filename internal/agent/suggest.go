package agent

// maxSuggestions caps the nudges appended to a chat response.
const maxSuggestions = 3

var genericSuggestions = []string{
	"Compare timestamps across documents to build a timeline of events.",
	"Re-read the case briefing for details you may have missed.",
	"Search for documents written by the people you suspect most.",
}

// suggestActions proposes next steps based on which tools the turn did NOT
// use, nudging the player toward untried capabilities. Generic investigative
// prompts fill the remaining slots.
func suggestActions(used map[string]bool, graphEnabled bool) []string {
	suggestions := make([]string, 0, maxSuggestions)

	if !used[toolSearchDocs] {
		suggestions = append(suggestions, "Try searching the evidence for specific names, amounts or dates.")
	}
	if graphEnabled && !used[toolGraphQuery] {
		suggestions = append(suggestions, "Explore the knowledge graph to see how people and documents connect.")
	}
	if !used[toolGetEntity] {
		suggestions = append(suggestions, "Look up a person or organization mentioned in the evidence.")
	}

	for _, s := range genericSuggestions {
		if len(suggestions) >= maxSuggestions {
			break
		}
		suggestions = append(suggestions, s)
	}

	return suggestions
}
