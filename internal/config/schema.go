package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// fileSchema describes copydesk.json. Unknown keys are rejected so a typo
// does not silently fall back to a default.
const fileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "telegram": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "bot_token": {"type": "string"},
        "poll_timeout": {"type": "integer", "minimum": 0},
        "debug": {"type": "boolean"}
      }
    },
    "completion": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "provider": {"type": "string", "enum": ["openrouter", "openai", "anthropic"]},
        "api_key": {"type": "string"},
        "base_url": {"type": "string"},
        "timeout": {"type": "integer", "minimum": 1},
        "temperature": {"type": "number", "exclusiveMinimum": 0, "maximum": 2},
        "max_tokens": {"type": "integer", "minimum": 1},
        "app_title": {"type": "string"}
      }
    },
    "models": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "draft": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 2},
        "revise": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 1}
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "file": {"type": "string"},
        "pretty": {"type": "boolean"},
        "redaction": {"type": "boolean"}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "addr": {"type": "string"}
      }
    },
    "queue": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "warn_after_ms": {"type": "integer", "minimum": 0}
      }
    },
    "maintenance": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "schedule": {"type": "string"}
      }
    },
    "tracing": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "service_name": {"type": "string"}
      }
    }
  }
}`

var compiledSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fileSchema))
	if err != nil {
		panic(fmt.Sprintf("config schema: %v", err))
	}
	compiledSchema = schema
}

// ValidateFile checks raw config file contents against the schema. The first
// violation is returned as a *ConfigurationError naming the offending field.
func ValidateFile(data []byte) error {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := result.Errors()
	reasons := make([]string, 0, len(violations))
	for _, violation := range violations {
		reasons = append(reasons, violation.Description())
	}

	return &ConfigurationError{
		Key:    violations[0].Field(),
		Reason: strings.Join(reasons, "; "),
	}
}
