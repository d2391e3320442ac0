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

package logging

import (
	"fmt"
	"strings"
)

type LogFormat int

const (
	ColorizedOutput LogFormat = iota
	PlaintextOutput
	JSONOutput
)

func (f LogFormat) String() string {
	switch f {
	case ColorizedOutput:
		return "color"
	case PlaintextOutput:
		return "plain"
	case JSONOutput:
		return "json"
	}
	return fmt.Sprintf("LogFormat(%d)", int(f))
}

// ParseLogFormat accepts "color", "plain"/"console"/"text" and "json", case insensitive.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "color", "colour", "colorized":
		return ColorizedOutput, nil
	case "plain", "plaintext", "console", "text":
		return PlaintextOutput, nil
	case "json":
		return JSONOutput, nil
	}
	return ColorizedOutput, fmt.Errorf("unknown log format '%s'", s)
}
