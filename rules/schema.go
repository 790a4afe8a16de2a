package rules

// ruleFileSchema validates rule files before compilation. Rule bodies are
// single-operator objects; relational operators take an optional stopBy.
const ruleFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rules"],
  "properties": {
    "version": {"type": "integer", "minimum": 0},
    "rules": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/rule"}
    }
  },
  "additionalProperties": false,
  "definitions": {
    "rule": {
      "type": "object",
      "required": ["id", "message", "rule"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "severity": {"enum": ["error", "warning", "info", "hint"]},
        "message": {"type": "string"},
        "language": {"enum": ["javascript", "js", "typescript", "ts", "tsx"]},
        "rule": {"$ref": "#/definitions/node"},
        "constraints": {
          "type": "object",
          "additionalProperties": {"$ref": "#/definitions/constraint"}
        },
        "transforms": {
          "type": "array",
          "items": {"$ref": "#/definitions/transform"}
        },
        "fix": {"type": "string"}
      },
      "additionalProperties": false
    },
    "node": {
      "type": "object",
      "minProperties": 1,
      "properties": {
        "pattern": {"type": "string", "minLength": 1},
        "kind": {"type": "string", "minLength": 1},
        "regex": {"type": "string", "minLength": 1},
        "nthChild": {"type": "integer", "minimum": 0},
        "all": {"type": "array", "items": {"$ref": "#/definitions/node"}},
        "any": {"type": "array", "items": {"$ref": "#/definitions/node"}},
        "not": {"$ref": "#/definitions/node"},
        "inside": {"$ref": "#/definitions/node"},
        "has": {"$ref": "#/definitions/node"},
        "follows": {"$ref": "#/definitions/node"},
        "precedes": {"$ref": "#/definitions/node"},
        "matches": {"type": "string", "minLength": 1},
        "stopBy": {
          "oneOf": [
            {"enum": ["neighbor", "end"]},
            {"$ref": "#/definitions/node"}
          ]
        }
      },
      "additionalProperties": false
    },
    "constraint": {
      "type": "object",
      "minProperties": 1,
      "maxProperties": 1,
      "properties": {
        "regex": {"type": "string"},
        "notRegex": {"type": "string"}
      },
      "additionalProperties": false
    },
    "transform": {
      "type": "object",
      "required": ["source", "op"],
      "properties": {
        "source": {"type": "string", "minLength": 1},
        "op": {"enum": ["substring", "replace", "convert"]},
        "arg": {"type": "string"}
      },
      "additionalProperties": false
    }
  }
}`
