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
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const fileName = "twopc.ini"

// DefaultConfigFileLocations returns the candidate paths, most specific first.
func DefaultConfigFileLocations() []string {
	var files []string
	if dir, err := os.Getwd(); err == nil {
		files = append(files, filepath.Join(dir, fileName))
	} else {
		files = append(files, fileName)
	}
	if runtime.GOOS != "windows" {
		files = append(files, filepath.Join("/etc/twopc", fileName))
	}
	return files
}

// FindConfigFile returns the first existing default location, or "" when none exists.
func FindConfigFile() string {
	for _, f := range DefaultConfigFileLocations() {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			return f
		}
	}
	return ""
}
