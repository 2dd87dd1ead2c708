package parser

import (
	"encoding/json"
	"strings"

	"pothole-ingest-pipeline/models"
)

// rawAssessment mirrors the JSON schema the model is prompted for. Severity is
// decoded as a float because models occasionally emit "4.0" for an integer.
type rawAssessment struct {
	Type        string  `json:"type"`
	Severity    float64 `json:"severity"`
	Urgency     string  `json:"urgency"`
	Explanation string  `json:"explanation"`
	GPS         string  `json:"gps"`
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find the JSON payload directly
		objIdx := strings.IndexAny(response, "{[")
		if objIdx == -1 {
			return response
		}
		endIdx := strings.LastIndexAny(response, "}]")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[objIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// ParseAssessment normalizes the model's text response into an Assessment.
// A JSON array takes its first element. If the response cannot be parsed as
// JSON at all, the raw text is preserved in an Unparsed assessment instead of
// failing the submission.
func ParseAssessment(response string) *models.Assessment {
	cleaned := strings.TrimSpace(response)
	jsonContent := extractJSONFromMarkdown(cleaned)

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(jsonContent), &payload); err != nil {
		return &models.Assessment{Unparsed: true, Raw: response}
	}

	// The model sometimes wraps the object in a single-element array.
	if len(payload) > 0 && payload[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(payload, &elems); err != nil || len(elems) == 0 {
			return &models.Assessment{Unparsed: true, Raw: response}
		}
		payload = elems[0]
	}

	var raw rawAssessment
	if err := json.Unmarshal(payload, &raw); err != nil {
		return &models.Assessment{Unparsed: true, Raw: response}
	}

	return &models.Assessment{
		DamageType:  raw.Type,
		Severity:    int(raw.Severity),
		Urgency:     raw.Urgency,
		Explanation: raw.Explanation,
		GPS:         raw.GPS,
	}
}
