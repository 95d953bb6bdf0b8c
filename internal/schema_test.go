package internal

import (
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
)

func TestGenerateSchema(t *testing.T) {
	type LineItem struct {
		Label  string  `json:"label" jsonschema_description:"Item label"`
		Amount float64 `json:"amount" jsonschema_description:"Item amount"`
	}

	type Receipt struct {
		Merchant string     `json:"merchant" jsonschema_description:"Merchant name"`
		Kind     string     `json:"kind" jsonschema_description:"Receipt kind" jsonschema:"enum=invoice,enum=ticket"`
		Quantity int        `json:"quantity" jsonschema_description:"Number of items"`
		Pages    []int      `json:"pages" jsonschema_description:"Pages the receipt spans"`
		Total    LineItem   `json:"total" jsonschema_description:"Receipt total"`
		Items    []LineItem `json:"items" jsonschema_description:"Receipt lines"`
	}

	schema := GenerateSchema[Receipt]()

	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Ref)
	assert.Empty(t, schema.Definitions)
	assert.Equal(t, jsonschema.FalseSchema, schema.AdditionalProperties)
	assert.ElementsMatch(t, schema.Required, []string{"merchant", "kind", "quantity", "pages", "total", "items"})

	assert.Equal(t, "string", schema.Properties.Value("merchant").Type)
	assert.Equal(t, "Merchant name", schema.Properties.Value("merchant").Description)

	assert.Equal(t, "string", schema.Properties.Value("kind").Type)
	assert.ElementsMatch(t, schema.Properties.Value("kind").Enum, []any{"invoice", "ticket"})

	assert.Equal(t, "integer", schema.Properties.Value("quantity").Type)

	assert.Equal(t, "array", schema.Properties.Value("pages").Type)
	assert.Equal(t, "integer", schema.Properties.Value("pages").Items.Type)

	total := schema.Properties.Value("total")

	assert.Equal(t, "object", total.Type)
	assert.Equal(t, "Receipt total", total.Description)
	assert.ElementsMatch(t, total.Required, []string{"label", "amount"})
	assert.Equal(t, "number", total.Properties.Value("amount").Type)

	items := schema.Properties.Value("items")

	assert.Equal(t, "array", items.Type)
	assert.Equal(t, "object", items.Items.Type)
	assert.Equal(t, "string", items.Items.Properties.Value("label").Type)
}
