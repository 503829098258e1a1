package openai

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "string"
    },
    "keywords": {
      "type": "array",
      "items": {
        "type": "string",
        "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"
      }
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "email": {"type": "string"},
          "company": {"type": "string"},
          "domain": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "required": ["summary", "keywords", "entities"],
  "additionalProperties": false
}`

const extractionPrompt = `Extract structured metadata from the given document text and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

` + extractionResponseSchema + `

Rules:
- "summary" is one or two sentences describing what the document is about. Plain prose, no markdown.
- "keywords" are lowercase topical terms, 1-3 words each, most relevant first. Include only topics the
  text actually covers. If no keywords can be identified, return "keywords": [].
- "entities" lists people or organizations the text identifies by name, email address, company, or web
  domain. Fill only the fields the text supplies; leave the rest out. Never invent contact details.
  If no entities are identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside
  the object.

Example:
Input: "Hi team, Alice Smith from Acme Corp (alice@acme.io) shared the Q3 roadmap. We will focus on
search latency and index compaction."
Output:
{
  "summary": "Alice Smith of Acme Corp shared the Q3 roadmap, which focuses on search latency and index compaction.",
  "keywords": ["q3 roadmap", "search latency", "index compaction"],
  "entities": [
    {"name": "Alice Smith", "email": "alice@acme.io", "company": "Acme Corp", "domain": "acme.io"}
  ]
}

Example (no entities):
Input: "rainfall totals for march were above average across the region"
Output:
{
  "summary": "March rainfall across the region was above average.",
  "keywords": ["rainfall", "march", "weather"],
  "entities": []
}`
