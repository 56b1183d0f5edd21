// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.txt.
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0, included in the file
// licenses/APL.txt.

// Package collatedstring is the collation provider of the vectorized engine:
// it enumerates the locales known to golang.org/x/text/collate under
// "language" or "language_region" names and builds collators for them.
package collatedstring

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollationTag is the name of the default (byte-wise) collation.
const DefaultCollationTag = "default"

// IsDefaultEquivalentCollation returns whether the named collation compares
// strings byte-wise, in which case no collator is needed.
func IsDefaultEquivalentCollation(name string) bool {
	switch strings.ToLower(name) {
	case "", DefaultCollationTag, "c", "posix", "ucs_basic":
		return true
	}
	return false
}

var supported struct {
	once  sync.Once
	names []string
	tags  map[string]language.Tag
}

func loadSupported() {
	supported.tags = make(map[string]language.Tag)
	for _, tag := range collate.Supported() {
		name, ok := collationName(tag)
		if !ok {
			continue
		}
		if _, dup := supported.tags[name]; dup {
			continue
		}
		supported.tags[name] = tag
		supported.names = append(supported.names, name)
	}
	sort.Strings(supported.names)
}

// collationName returns the lowercase "language" or "language_region" name
// for tag. Tags that carry scripts or variants keep their full BCP 47 form
// with dashes replaced by underscores.
func collationName(tag language.Tag) (string, bool) {
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	name := base.String()
	if region, conf := tag.Region(); conf == language.Exact {
		name += "_" + region.String()
	}
	if full := strings.ReplaceAll(tag.String(), "-", "_"); !strings.EqualFold(full, name) {
		name = full
	}
	return strings.ToLower(name), true
}

// Supported returns the names of all collations available, sorted.
func Supported() []string {
	supported.once.Do(loadSupported)
	return append([]string(nil), supported.names...)
}

// Parse resolves a collation name to a language tag. Names may use either
// underscores or dashes as separators and any case. Names not in
// Supported() are accepted as long as they are well-formed BCP 47 tags;
// the collator then falls back to the closest supported locale.
func Parse(name string) (language.Tag, error) {
	supported.once.Do(loadSupported)
	if IsDefaultEquivalentCollation(name) {
		return language.Und, errors.Newf("collation %q is byte-wise and has no locale", name)
	}
	if tag, ok := supported.tags[strings.ToLower(name)]; ok {
		return tag, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return language.Und, errors.Wrapf(err, "invalid locale %s", name)
	}
	return tag, nil
}

// NewCollator returns a new collator for the named collation. Collators are
// not safe for concurrent use, so every user gets its own.
func NewCollator(name string) (*collate.Collator, error) {
	tag, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return collate.New(tag), nil
}

// SortKey returns the hex encoding of the collation key of s. Two strings
// compare under the collation the way their sort keys compare byte-wise.
func SortKey(c *collate.Collator, buf *collate.Buffer, s string) string {
	key := c.KeyFromString(buf, s)
	out := hex.EncodeToString(key)
	buf.Reset()
	return strings.ToUpper(out)
}
