// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package envutil reads COCKROACH_* style environment overrides.
package envutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

var envVarRegistry struct {
	mu    sync.Mutex
	cache map[string]envVarInfo
}

type envVarInfo struct {
	present bool
	value   string
}

func checkVarName(name string) {
	if !strings.HasPrefix(name, "COCKROACH_") {
		panic(fmt.Sprintf("environment variable %s must start with COCKROACH_", name))
	}
	for _, c := range name {
		if !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			panic(fmt.Sprintf("environment variable %s contains invalid character %q", name, c))
		}
	}
}

// getEnv retrieves an environment variable. The first value read is cached
// so that all readers of a variable observe the same value.
func getEnv(varName string) (string, bool) {
	checkVarName(varName)
	envVarRegistry.mu.Lock()
	defer envVarRegistry.mu.Unlock()
	if envVarRegistry.cache == nil {
		envVarRegistry.cache = make(map[string]envVarInfo)
	}
	if info, ok := envVarRegistry.cache[varName]; ok {
		return info.value, info.present
	}
	v, found := os.LookupEnv(varName)
	envVarRegistry.cache[varName] = envVarInfo{present: found, value: v}
	return v, found
}

// ClearEnvCache forgets previously read values. Used in tests.
func ClearEnvCache() {
	envVarRegistry.mu.Lock()
	defer envVarRegistry.mu.Unlock()
	envVarRegistry.cache = nil
}

// EnvOrDefaultInt returns the value set by the specified environment
// variable, if any, otherwise the specified default value. Panics if the
// value cannot be parsed.
func EnvOrDefaultInt(name string, value int) int {
	if str, present := getEnv(name); present {
		v, err := strconv.ParseInt(str, 0, 0)
		if err != nil {
			panic(errors.Wrapf(err, "error parsing %s", name))
		}
		return int(v)
	}
	return value
}

// EnvOrDefaultBool returns the value set by the specified environment
// variable, if any, otherwise the specified default value.
func EnvOrDefaultBool(name string, value bool) bool {
	if str, present := getEnv(name); present {
		v, err := strconv.ParseBool(str)
		if err != nil {
			panic(errors.Wrapf(err, "error parsing %s", name))
		}
		return v
	}
	return value
}
