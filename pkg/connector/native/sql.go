// SPDX-FileCopyrightText: Copyright 2025 GeoRetina, Inc.
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"context"
	"regexp"
	"strings"

	"github.com/GeoRetina/arion-connectors/pkg/connector"
	"github.com/GeoRetina/arion-connectors/pkg/errors"
)

const (
	defaultRowLimit = 200
	maxRowLimit     = 1000
)

var (
	// readOnlyPrefix matches the statement kinds the read-only policy admits.
	readOnlyPrefix = regexp.MustCompile(`(?i)^\s*(select|with|explain)\b`)

	// mutatingKeywords matches any keyword that can change state, anywhere
	// in the statement. CTE tricks like WITH x AS (DELETE ...) are caught here.
	mutatingKeywords = regexp.MustCompile(
		`(?i)\b(insert|update|delete|alter|create|drop|truncate|grant|revoke|merge|call|copy|vacuum|reindex|cluster|refresh)\b`)

	// selectInto matches the SELECT ... INTO table-creation form.
	selectInto = regexp.MustCompile(`(?i)\bselect\b[\s\S]*\binto\b`)
)

// validateReadOnlyQuery enforces the read-only SQL policy: a single
// select/with/explain statement with no mutating keywords and no
// SELECT ... INTO.
func validateReadOnlyQuery(query string) *errors.Error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errors.New(errors.CodeValidationFailed, "query must be a non-empty string")
	}
	if !readOnlyPrefix.MatchString(trimmed) {
		return errors.New(errors.CodeValidationFailed,
			"Only read-only queries are allowed (SELECT, WITH, EXPLAIN)")
	}

	statements := 0
	for _, part := range strings.Split(trimmed, ";") {
		if strings.TrimSpace(part) != "" {
			statements++
		}
	}
	if statements != 1 {
		return errors.New(errors.CodeValidationFailed, "Multiple SQL statements are not allowed")
	}

	if mutatingKeywords.MatchString(trimmed) {
		return errors.New(errors.CodeValidationFailed,
			"Mutating SQL keywords are not allowed in read-only queries")
	}
	if selectInto.MatchString(trimmed) {
		return errors.New(errors.CodeValidationFailed, "SELECT ... INTO is not allowed")
	}
	return nil
}

// executeSQLQuery runs a read-only query through the externally-owned pool
// and truncates the result to the requested row limit.
func (a *Adapter) executeSQLQuery(ctx context.Context, req *connector.ExecutionRequest) *connector.AdapterResult {
	if _, cfgErr := a.integrationConfig(connector.IntegrationPostgreSQLPostGIS); cfgErr != nil {
		return connector.Fail(cfgErr)
	}

	query, _ := inputString(req.Input, "query")
	if readOnly, ok := inputBool(req.Input, "readOnly"); ok && !readOnly {
		return connector.Fail(errors.New(errors.CodeValidationFailed,
			"Only read-only queries are supported; readOnly must not be false"))
	}
	if err := validateReadOnlyQuery(query); err != nil {
		return connector.Fail(err)
	}

	var params []any
	if raw, present := req.Input["params"]; present {
		list, ok := raw.([]any)
		if !ok {
			return connector.Fail(errors.New(errors.CodeValidationFailed, "params must be an array"))
		}
		params = list
	}

	rowLimit := clampInt(req.Input, "rowLimit", defaultRowLimit, 1, maxRowLimit)

	if a.pool == nil {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "SQL pool is not available"))
	}
	info, err := a.pool.GetConnectionInfo(ctx, connector.IntegrationPostgreSQLPostGIS)
	if err != nil {
		return connector.Fail(errors.NewNotConfigured("failed to check database connection").WithCause(err))
	}
	if info == nil || !info.Connected {
		return connector.Fail(errors.New(errors.CodeNotConfigured, "Database is not connected"))
	}

	result, err := a.pool.ExecuteQuery(ctx, connector.IntegrationPostgreSQLPostGIS, query, params)
	if err != nil {
		return connector.Fail(errors.NewExecutionFailed("query execution failed", err))
	}
	if !result.Success {
		return connector.Fail(errors.Newf(errors.CodeExecutionFailed,
			"query execution failed: %s", result.Message))
	}

	rows := result.Rows
	totalRows := result.RowCount
	if totalRows == 0 {
		totalRows = len(rows)
	}
	if len(rows) > rowLimit {
		rows = rows[:rowLimit]
	}

	return connector.Succeed(map[string]any{
		"rows":            rows,
		"rowCount":        totalRows,
		"fields":          result.Fields,
		"truncated":       totalRows > rowLimit,
		"executionTimeMs": result.ExecutionTimeMs,
	})
}
