package tenant

import (
	"regexp"

	"github.com/jackc/pgx/v5"
)

// CodeRegex restricts tenant codes so that derived schema names are always valid identifiers.
var CodeRegex = regexp.MustCompile(`^[a-z][a-z0-9_]{1,30}$`)

const schemaPrefix = "tenant_"

// SchemaName returns the PostgreSQL schema that holds a tenant's data.
func SchemaName(code string) string {
	return schemaPrefix + code
}

// Table returns the sanitized, schema-qualified name of a tenant table,
// e.g. Table("tenant_acme", "talents") == `"tenant_acme"."talents"`.
func Table(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}
