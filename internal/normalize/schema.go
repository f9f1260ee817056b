package normalize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Boundary schemas only decide whether a record can be used at all: it must be
// an object and carry an identity. Field contents are coerced afterwards.
const identitySchema = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {
      "anyOf": [
        {"type": "integer"},
        {"type": "string", "pattern": "^[0-9]+$"}
      ]
    }
  }
}`

const transactionSchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["id"], "properties": {"id": {"anyOf": [{"type": "integer"}, {"type": "string", "pattern": "^[0-9]+$"}]}}},
    {"required": ["transaction_id"], "properties": {"transaction_id": {"type": "string", "minLength": 1}}}
  ]
}`

const objectSchema = `{"type": "object"}`

type schemaSet struct {
	identity    *jsonschema.Schema
	transaction *jsonschema.Schema
	object      *jsonschema.Schema
}

var (
	schemasOnce sync.Once
	schemas     schemaSet
	schemasErr  error
)

func compile(name, src string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}

func loadSchemas() (schemaSet, error) {
	schemasOnce.Do(func() {
		var set schemaSet
		if set.identity, schemasErr = compile("identity.json", identitySchema); schemasErr != nil {
			return
		}
		if set.transaction, schemasErr = compile("transaction.json", transactionSchema); schemasErr != nil {
			return
		}
		if set.object, schemasErr = compile("object.json", objectSchema); schemasErr != nil {
			return
		}
		schemas = set
	})
	return schemas, schemasErr
}
