package llm

import (
	"fmt"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

const categoryGuide = `Suggest up to %d categories that best describe this content.
Categories should be concise (1-3 words each).
Examples: "Email", "Invoice", "Code Snippet", "Chat Message",
"Error Log", "Documentation", "Social Media", "Receipt", "Diagram", "Photo".`

const textPrompt = `Analyze this screenshot image and provide:

1. EXTRACTED TEXT: Extract all readable text from the image exactly as it appears.

2. CATEGORIES: %s

Respond in this exact JSON format:
{
  "content_type": "text",
  "text": "The extracted text content...",
  "categories": ["Category1", "Category2"]
}

Important:
- Extract ALL visible text, preserving line breaks where appropriate
- If no text is visible, set text to "[No text detected]"
- Always provide at least one category
- Categories should be relevant and specific`

const graphicPrompt = `Analyze this image as a picture, diagram or other graphic and provide:

1. DESCRIPTION: Describe what the image shows in a few clear sentences.
   Mention any short visible text only where it helps the description.

2. CATEGORIES: %s

Respond in this exact JSON format:
{
  "content_type": "graphic",
  "description": "What the image shows...",
  "categories": ["Category1", "Category2"]
}

Important:
- Always provide at least one category
- Categories should be relevant and specific`

const autoPrompt = `Analyze this screenshot image. First decide whether it is mainly TEXT
(documents, messages, code, forms) or mainly GRAPHIC (photos, drawings, charts, diagrams).

If it is TEXT:
- set "content_type" to "text"
- put all readable text, exactly as it appears, in "text"
- if no text is visible, set text to "[No text detected]"

If it is GRAPHIC:
- set "content_type" to "graphic"
- describe what the image shows in "description"

CATEGORIES: %s

Respond in this exact JSON format:
{
  "content_type": "text or graphic",
  "text": "The extracted text content (text only)...",
  "description": "What the image shows (graphic only)...",
  "categories": ["Category1", "Category2"]
}

Important:
- Always provide at least one category
- Categories should be relevant and specific`

// buildPrompt creates the analysis prompt for the requested content type.
// An empty override lets the model classify the content.
func buildPrompt(override domain.ContentType, maxCategories int) string {
	guide := fmt.Sprintf(categoryGuide, maxCategories)
	switch override {
	case domain.ContentText:
		return fmt.Sprintf(textPrompt, guide)
	case domain.ContentGraphic:
		return fmt.Sprintf(graphicPrompt, guide)
	default:
		return fmt.Sprintf(autoPrompt, guide)
	}
}
