package internal

import "github.com/invopop/jsonschema"

// GenerateSchema reflects S into a closed, fully inlined JSON schema, which is
// the shape structured-output and tool-calling APIs accept.
func GenerateSchema[S any]() jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	jsonSchema := reflector.Reflect(new(S))

	return *jsonSchema
}
