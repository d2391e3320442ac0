/*
 * Copyright 2021. Go-Sharding Author All Rights Reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 *
 *  File author: Anders Xiao
 */

package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/endink/go-twopc/provider"
	"github.com/endink/go-twopc/transaction"
	"github.com/pingcap/errors"
)

const (
	OpExec  = "exec"
	OpQuery = "query"
)

// Executor runs SQL statements inside the transaction bound to the call.
// Arguments are the statement followed by its parameters.
type Executor struct{}

var _ transaction.OperationExecutor = Executor{}

func (Executor) ExecuteOperation(ctx context.Context, _ string, operationName string, args []interface{}) (interface{}, error) {
	v, _ := transaction.HandleFromContext(ctx)
	tx, ok := v.(*Tx)
	if !ok || tx == nil {
		return nil, fmt.Errorf("no sql transaction bound to the call")
	}
	statement, err := provider.StringArg(operationName, args, 0)
	if err != nil {
		return nil, err
	}
	params := args[1:]

	switch operationName {
	case OpExec:
		res, err := tx.ExecContext(ctx, statement, params...)
		if err != nil {
			return nil, err
		}
		return res.RowsAffected()
	case OpQuery:
		rows, err := tx.QueryContext(ctx, statement, params...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRows(rows)
	default:
		return nil, fmt.Errorf("unknown operation '%s'", operationName)
	}
}

func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Trace(err)
	}
	result := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Trace(err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, errors.Trace(rows.Err())
}
