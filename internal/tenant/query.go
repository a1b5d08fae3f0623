package tenant

import (
	"context"
	"fmt"
	"strings"
)

// ScopeQuery appends a tenant predicate to a SQL query so row-level isolation
// is enforced at the data-access boundary. The tenant id is appended to the
// argument list as the last positional parameter; execution is refused when
// no tenant is installed.
func ScopeQuery(ctx context.Context, query string, args []interface{}) (string, []interface{}, error) {
	t, err := Require(ctx)
	if err != nil {
		return "", nil, err
	}

	trimmed := strings.TrimRight(strings.TrimSpace(query), ";")
	if trimmed == "" {
		return "", nil, fmt.Errorf("empty query")
	}

	scoped := args
	placeholder := fmt.Sprintf("$%d", len(args)+1)
	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, " WHERE ") {
		trimmed = fmt.Sprintf("%s AND tenant_id = %s", trimmed, placeholder)
	} else {
		trimmed = fmt.Sprintf("%s WHERE tenant_id = %s", trimmed, placeholder)
	}
	scoped = append(append([]interface{}{}, scoped...), t.ID)

	return trimmed, scoped, nil
}
