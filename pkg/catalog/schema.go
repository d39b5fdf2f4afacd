package catalog

// routineSchema is the structural contract for routine definition files. The
// scheduleType/deadline/recurrence cross-field invariant and step ordering
// are enforced by models.Routine.Validate after unmarshalling; the schema
// covers types and required fields.
const routineSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "name", "schedule_type"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 3},
		"description": {"type": "string"},
		"schedule_type": {"enum": ["template", "one_time", "recurring"]},
		"deadline": {"type": "string", "format": "date-time"},
		"recurrence": {
			"type": "object",
			"required": ["frequency", "interval", "start_date"],
			"properties": {
				"frequency": {"enum": ["daily", "weekly", "monthly"]},
				"interval": {"type": "integer", "minimum": 1},
				"days_of_week": {
					"type": "array",
					"items": {"type": "integer", "minimum": 0, "maximum": 6}
				},
				"day_of_month": {"type": "integer", "minimum": 1, "maximum": 31},
				"start_date": {"type": "string", "format": "date-time"},
				"end_date": {"type": "string", "format": "date-time"}
			}
		},
		"materials": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["material_id", "quantity", "unit"],
				"properties": {
					"material_id": {"type": "string", "minLength": 1},
					"quantity": {"type": "number", "exclusiveMinimum": 0},
					"unit": {"type": "string", "minLength": 1}
				}
			}
		},
		"equipment": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["equipment_id", "estimated_duration_minutes"],
				"properties": {
					"equipment_id": {"type": "string", "minLength": 1},
					"estimated_duration_minutes": {"type": "integer", "minimum": 1},
					"required": {"type": "boolean"}
				}
			}
		},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "order", "description"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"order": {"type": "integer", "minimum": 1},
					"description": {"type": "string", "minLength": 1},
					"notes": {"type": "string"}
				}
			}
		},
		"assigned_user_ids": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`
