// Copyright 2024 bookworm Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"

	"github.com/scylladb/go-set/strset"
)

func validateNotEmptyString(name, val string) {
	if strings.TrimSpace(val) == "" {
		panic(fmt.Sprintf("value of `%s` in config must not be empty", name))
	}
}

func validatePositive(name string, val int) {
	if val <= 0 {
		panic(fmt.Sprintf("value of `%s` in config must be positive, but the current value is %d", name, val))
	}
}

func validateSuffix(name, val, suffix string) {
	if !strings.HasSuffix(val, suffix) {
		panic(fmt.Sprintf("value of `%s` in config must end with `%s`, but the current value is %s", name, suffix, val))
	}
}

func validateIn(name, val string, expectedValues []string) {
	expectedValueSet := strset.New(expectedValues...)
	if !expectedValueSet.Has(val) {
		panic(fmt.Sprintf("value of `%s` in config must be one of [%s], but the current value is %s",
			name, strings.Join(expectedValues, ","), val))
	}
}
