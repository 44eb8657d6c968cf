package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// BuildConstraintPrompt builds the system and user prompts for expanding a
// topic into search constraints. The system prompt pins the response format;
// the user prompt carries the topic.
func BuildConstraintPrompt(topic string) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a biomedical literature search specialist. Your task is to ")
	sb.WriteString("expand a research topic into structured search constraints for querying ")
	sb.WriteString("scholarly indexes such as OpenAlex and Semantic Scholar.\n\n")

	sb.WriteString("You MUST respond with valid JSON in exactly this format:\n")
	sb.WriteString(`{"primaryKeywords": ["term1", "term2"], "subfields": ["subfield1"], "meshTerms": ["MeSH term"], "synonyms": ["synonym1"], "relatedConcepts": ["concept1"], "exclude": ["term to exclude"]}`)
	sb.WriteString("\n\n")

	sb.WriteString("Guidelines:\n")
	sb.WriteString("1. primaryKeywords are the 3 to 5 most effective search phrases for the topic, most specific first.\n")
	sb.WriteString("2. subfields are narrower research areas within the topic.\n")
	sb.WriteString("3. meshTerms are standard MeSH-style controlled vocabulary terms.\n")
	sb.WriteString("4. synonyms include abbreviated forms (e.g., \"HFrEF\") alongside expanded forms.\n")
	sb.WriteString("5. relatedConcepts are adjacent topics whose experts often overlap with this one.\n")
	sb.WriteString("6. exclude lists terms for populations or contexts usually out of scope (e.g., \"pediatric\", \"animal\") unless the topic names them.\n")
	sb.WriteString("7. Avoid generic terms such as \"study\", \"research\", or \"analysis\".\n")

	systemPrompt = sb.String()
	userPrompt = fmt.Sprintf("Expand the following research topic into search constraints.\n\nTopic: %s", topic)
	return systemPrompt, userPrompt
}

// parseConstraints parses an LLM response into search constraints. Blank
// primary keywords are dropped; a response with none left is an error.
func parseConstraints(text string) (*domain.SearchConstraints, error) {
	var constraints domain.SearchConstraints
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &constraints); err != nil {
		return nil, fmt.Errorf("failed to parse constraint response as JSON: %w", err)
	}

	kept := constraints.PrimaryKeywords[:0]
	for _, kw := range constraints.PrimaryKeywords {
		if strings.TrimSpace(kw) != "" {
			kept = append(kept, domain.NormalizeTerm(kw))
		}
	}
	constraints.PrimaryKeywords = kept

	if !constraints.IsValid() {
		return nil, fmt.Errorf("constraint response contains no primary keywords")
	}

	return &constraints, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some models
// emit despite instructions.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// BuildBiographyPrompt builds the system and user prompts for writing a short
// expert biography from verified metrics.
func BuildBiographyPrompt(req BiographyRequest) (systemPrompt, userPrompt string) {
	var sb strings.Builder

	sb.WriteString("You are a scientific editor writing short factual biographies of ")
	sb.WriteString("researchers. Write two to three sentences in plain prose.\n\n")

	sb.WriteString("Rules:\n")
	sb.WriteString("1. Use ONLY the facts provided. Never invent degrees, titles, awards, or affiliations.\n")
	sb.WriteString("2. Do not use honorifics such as \"Dr.\" or \"Professor\".\n")
	sb.WriteString("3. State the researcher's focus within the topic and the scale of their output.\n")
	sb.WriteString("4. Respond with the biography text only, no preamble and no markdown.\n")

	systemPrompt = sb.String()

	var ub strings.Builder
	ub.WriteString("Write a biography from these facts.\n\n")
	ub.WriteString(fmt.Sprintf("Name: %s\n", req.Name))
	ub.WriteString(fmt.Sprintf("Topic: %s\n", req.Topic))
	if len(req.Institutions) > 0 {
		ub.WriteString(fmt.Sprintf("Affiliations: %s\n", strings.Join(req.Institutions, "; ")))
	}
	ub.WriteString(fmt.Sprintf("Publications on topic: %d\n", req.TopicWorks))
	ub.WriteString(fmt.Sprintf("Citations on topic: %d\n", req.TopicCitations))
	if req.TrialWorks > 0 {
		ub.WriteString(fmt.Sprintf("Clinical trial publications: %d\n", req.TrialWorks))
	}
	if len(req.RecentTitles) > 0 {
		ub.WriteString("Recent work titles:\n")
		for _, title := range req.RecentTitles {
			ub.WriteString(fmt.Sprintf("- %s\n", title))
		}
	}

	userPrompt = ub.String()
	return systemPrompt, userPrompt
}
