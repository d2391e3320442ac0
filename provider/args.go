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

package provider

import (
	"fmt"
	"strconv"
)

// StringArg returns args[i] as a string. Numbers decoded from JSON are accepted.
func StringArg(operation string, args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("operation '%s' expects at least %d arguments, got %d", operation, i+1, len(args))
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("operation '%s' argument %d must be a string, got %T", operation, i, args[i])
	}
}

// StringArgs converts args[from:].
func StringArgs(operation string, args []interface{}, from int) ([]string, error) {
	var out []string
	for i := from; i < len(args); i++ {
		s, err := StringArg(operation, args, i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
