package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SummaryContent is the structured output expected from a summarization call.
type SummaryContent struct {
	// Summary is a short structured description of the text.
	Summary string `json:"summary"`

	// KeyIdeas lists the main ideas of the text.
	KeyIdeas []string `json:"keyIdeas"`
}

// AnalysisContent is the structured output expected from an analysis call.
type AnalysisContent struct {
	// Summary is a brief resume of the abstract.
	Summary string `json:"summary"`

	// KeyWords lists the abstract's key terms.
	KeyWords []string `json:"keyWords"`

	// Topic describes the article's subject area in one or two phrases.
	Topic string `json:"topic"`
}

// BuildSummaryPrompt builds the user prompt for paper summarization.
// The model is instructed to reply with a JSON object containing
// "summary" and "keyIdeas" fields.
func BuildSummaryPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Summarize the following scientific text. ")
	sb.WriteString("Be brief and structured, no filler.\n\n")
	sb.WriteString("Text to summarize:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nReturn the result as JSON:\n")
	sb.WriteString(`{
  "summary": "a concise description of 5-10 sentences",
  "keyIdeas": ["key idea 1", "key idea 2", "key idea 3"]
}`)

	return sb.String()
}

// ParseSummaryContent parses the model's summarization response.
// Returns an error when the content is not the expected JSON object;
// callers decide whether that is recoverable.
func ParseSummaryContent(content string) (*SummaryContent, error) {
	var parsed SummaryContent
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing summary content: %w", err)
	}
	if parsed.KeyIdeas == nil {
		parsed.KeyIdeas = []string{}
	}
	return &parsed, nil
}

// BuildAnalysisPrompt builds the system and user prompts for abstract analysis.
// The model is instructed to reply strictly with a JSON object containing
// "summary", "keyWords", and "topic" fields.
func BuildAnalysisPrompt(abstract string) (systemPrompt, userPrompt string) {
	systemPrompt = "You are a scientific article analyst."

	var sb strings.Builder
	sb.WriteString("Analyze the abstract of a scientific article.\n\n")
	sb.WriteString("IMPORTANT: return the answer strictly as JSON. ")
	sb.WriteString("Do not write text outside the JSON. Do not add explanations.\n\n")
	sb.WriteString("Response format:\n\n")
	sb.WriteString(`{
  "summary": "a brief resume",
  "keyWords": ["word1", "word2", "..."],
  "topic": "1-2 phrases about the article's subject area"
}`)
	sb.WriteString("\n\nHere is the text to analyze:\n")
	sb.WriteString(abstract)

	return systemPrompt, sb.String()
}

// ParseAnalysisContent parses the model's analysis response.
// Unlike summarization, malformed content here is a hard error for callers.
func ParseAnalysisContent(content string) (*AnalysisContent, error) {
	var parsed AnalysisContent
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing analysis content: %w", err)
	}
	if parsed.KeyWords == nil {
		parsed.KeyWords = []string{}
	}
	return &parsed, nil
}
