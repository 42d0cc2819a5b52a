package curriculum

// GraphSchema constrains graph generation output. Passed to the model via
// generationConfig response schema so the reply is guaranteed JSON-shaped;
// graph-level validity (dedup, dangling links) is still normalized locally
// because schema enforcement cannot express referential integrity.
const GraphSchema = `{
  "type": "object",
  "required": ["nodes", "links"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label", "status"],
        "properties": {
          "id": {
            "type": "string",
            "description": "Unique short identifier; the entry concept must use id 'start'"
          },
          "label": {
            "type": "string",
            "description": "Human-readable concept name"
          },
          "status": {
            "type": "string",
            "enum": ["pending", "active", "completed"],
            "description": "Initial progress state; 'start' is active, the rest pending"
          }
        }
      }
    },
    "links": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "source": {
            "type": "string",
            "description": "Prerequisite concept id"
          },
          "target": {
            "type": "string",
            "description": "Concept id that depends on the source"
          }
        }
      }
    }
  }
}`
