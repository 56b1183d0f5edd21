// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package randutil hands out seeded random sources so that randomized tests
// can be reproduced from the seed they log.
package randutil

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/vecjoin/pkg/util/envutil"
)

var globalSeed = envutil.EnvOrDefaultInt("COCKROACH_RANDOM_SEED", 0)

var seedCounter atomic.Int64

// NewPseudoSeed generates a seed from the current time, or returns the seed
// fixed through COCKROACH_RANDOM_SEED.
func NewPseudoSeed() int64 {
	if globalSeed != 0 {
		return int64(globalSeed)
	}
	return time.Now().UnixNano() + seedCounter.Add(1)
}

// NewPseudoRand returns an instance of math/rand.Rand seeded from the
// environment or the current time, along with the seed that was used.
func NewPseudoRand() (*rand.Rand, int64) {
	seed := NewPseudoSeed()
	return rand.New(rand.NewSource(seed)), seed
}

// TB is the subset of testing.TB used here.
type TB interface {
	Helper()
	Logf(format string, args ...interface{})
}

// NewTestRand returns a seeded random source and logs its seed so that a
// failing run can be reproduced with COCKROACH_RANDOM_SEED.
func NewTestRand(t TB) (*rand.Rand, int64) {
	t.Helper()
	rng, seed := NewPseudoRand()
	t.Logf("random seed: %d", seed)
	return rng, seed
}

// RandIntInRange returns a value in [min, max).
func RandIntInRange(rng *rand.Rand, min, max int) int {
	if max <= min {
		panic(fmt.Sprintf("invalid range [%d, %d)", min, max))
	}
	return min + rng.Intn(max-min)
}
